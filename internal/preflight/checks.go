package preflight

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"reelmill/internal/catalog"
	"reelmill/internal/config"
	"reelmill/internal/deps"
)

// CheckGraphPage verifies the page token against the Graph API by reading the
// page's id and name.
func CheckGraphPage(ctx context.Context, cfg config.Publication) Result {
	const name = "Facebook page"

	pageID := strings.TrimSpace(cfg.PageID)
	token := strings.TrimSpace(cfg.PageToken)
	if pageID == "" {
		return Result{Name: name, Detail: "missing page id"}
	}
	if token == "" {
		return Result{Name: name, Detail: "missing page token"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	base := strings.TrimRight(strings.TrimSpace(cfg.GraphBaseURL), "/")
	query := url.Values{"fields": {"id,name"}, "access_token": {token}}
	endpoint := fmt.Sprintf("%s/%s/%s?%s", base, strings.Trim(cfg.APIVersion, "/"), url.PathEscape(pageID), query.Encode())
	req, err := http.NewRequestWithContext(checkCtx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%v)", err)}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%v)", redactToken(err.Error(), token))}
	}
	defer resp.Body.Close()

	var payload struct {
		Name  string `json:"name"`
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 16*1024))
	_ = json.Unmarshal(body, &payload)

	switch {
	case resp.StatusCode == http.StatusOK:
		detail := "Reachable"
		if payload.Name != "" {
			detail = fmt.Sprintf("Reachable (%s)", payload.Name)
		}
		return Result{Name: name, Passed: true, Detail: detail}
	case payload.Error != nil && payload.Error.Message != "":
		return Result{Name: name, Detail: fmt.Sprintf("token rejected (%s)", payload.Error.Message)}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("token check failed (%d)", resp.StatusCode)}
	}
}

// CheckCredentials reports whether publication credentials are configured
// without contacting the platform.
func CheckCredentials(cfg config.Publication) Result {
	const name = "Page credentials"

	var missing []string
	if strings.TrimSpace(cfg.PageID) == "" {
		missing = append(missing, "page_id")
	}
	if strings.TrimSpace(cfg.PageToken) == "" {
		missing = append(missing, "page_token")
	}
	if len(missing) > 0 {
		return Result{Name: name, Detail: "missing " + strings.Join(missing, ", ")}
	}
	return Result{Name: name, Passed: true, Detail: "configured"}
}

// CheckCatalog verifies the magnet catalog parses and has entries left.
func CheckCatalog(path string) Result {
	const name = "Magnet catalog"

	entries, err := catalog.New(path).Entries()
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if len(entries) == 0 {
		return Result{Name: name, Detail: fmt.Sprintf("%s (no entries left)", path)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (%d entries)", path, len(entries))}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckSystemDeps evaluates the external binaries for the given config.
// Both the run bootstrap and the CLI status command use this to avoid
// duplicating the requirements list.
func CheckSystemDeps(cfg *config.Config) []deps.Status {
	return deps.CheckBinaries(deps.PipelineRequirements(cfg))
}

func redactToken(message, token string) string {
	if token == "" {
		return message
	}
	message = strings.ReplaceAll(message, token, "REDACTED")
	return strings.ReplaceAll(message, url.QueryEscape(token), "REDACTED")
}
