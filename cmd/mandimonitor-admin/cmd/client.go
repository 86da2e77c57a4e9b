package cmd

import (
	"fmt"
	"io"
	"net/http"
)

// adminGet issues an authenticated GET against the Admin Reader API and
// returns the raw response body, erroring on anything but 200.
func adminGet(path string) ([]byte, error) {
	req, err := http.NewRequest(http.MethodGet, serverURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if adminUser != "" || adminPass != "" {
		req.SetBasicAuth(adminUser, adminPass)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to server: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned %s: %s", resp.Status, string(body))
	}
	return body, nil
}
