package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	apiURL := os.Getenv("YTSEARCH_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("YTSEARCH_API_KEY")

	s := newServer(strings.TrimRight(apiURL, "/"), apiKey)
	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func newServer(apiURL, apiKey string) *server.MCPServer {
	s := server.NewMCPServer(
		"ytsearch",
		"0.1.0",
		server.WithToolCapabilities(false),
	)

	searchTool := mcp.NewTool("youtube_search",
		mcp.WithDescription("Search YouTube and return the video ID of the first result. Uses a headless browser on the ytsearch service, so a call can take several seconds."),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Free-text search query, e.g. 'lofi hip hop'"),
		),
	)
	s.AddTool(searchTool, handleSearch(apiURL, apiKey))

	statusTool := mcp.NewTool("service_status",
		mcp.WithDescription("Report the ytsearch service status: browser liveness, open pages and uptime."),
	)
	s.AddTool(statusTool, handleStatus(apiURL))

	return s
}

// client is shared by the tools. The service bounds a search at roughly two
// minutes (navigation plus selector wait).
var client = &http.Client{Timeout: 150 * time.Second}

func handleSearch(apiURL, apiKey string) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil {
			return mcp.NewToolResultError("query is required"), nil
		}

		endpoint := apiURL + "/search/" + url.PathEscape(query)
		body, status, err := get(ctx, endpoint, apiKey)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: HTTP %d %s", status, strings.TrimSpace(body))), nil
		}

		id := strings.TrimSpace(body)
		return mcp.NewToolResultText(fmt.Sprintf("Video ID: %s\nURL: https://www.youtube.com/watch?v=%s", id, id)), nil
	}
}

func handleStatus(apiURL string) server.ToolHandlerFunc {
	return func(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		body, status, err := get(ctx, apiURL+"/_ah/status", "")
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		if status != http.StatusOK {
			return mcp.NewToolResultError(fmt.Sprintf("status failed: HTTP %d", status)), nil
		}
		return mcp.NewToolResultText(body), nil
	}
}

func get(ctx context.Context, endpoint, apiKey string) (string, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", 0, err
	}
	if apiKey != "" {
		req.Header.Set("X-API-Key", apiKey)
	}

	resp, err := client.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", resp.StatusCode, fmt.Errorf("read response: %w", err)
	}
	return string(body), resp.StatusCode, nil
}
