package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

// Build variables - these will be set during build time using ldflags
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

const serverVersionTimeout = 5 * time.Second

// buildInfo is what the version command reports
type buildInfo struct {
	Version   string      `json:"version"`
	GitCommit string      `json:"gitCommit"`
	BuildTime string      `json:"buildTime"`
	GoVersion string      `json:"goVersion"`
	Platform  string      `json:"platform"`
	Server    *serverInfo `json:"server,omitempty"`
}

// serverInfo is the version document a running server serves at its root
type serverInfo struct {
	URL     string `json:"url"`
	Name    string `json:"name"`
	Version string `json:"version"`
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Long: `Display the version of this transcript-sync binary.

With --server the version of a running sync server is fetched as well, which
helps spot a client and server built from different releases.`,
	Example: `  transcript-sync version --short
  transcript-sync version --server http://sync.local:8080 --json`,
	RunE: runVersion,
}

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.Flags().BoolP("short", "s", false, "print just the version number")
	versionCmd.Flags().Bool("json", false, "print version information as JSON")
	versionCmd.Flags().String("server", "", "also report the version of the server at this URL")
}

func runVersion(cmd *cobra.Command, args []string) error {
	short, _ := cmd.Flags().GetBool("short")
	asJSON, _ := cmd.Flags().GetBool("json")
	server, _ := cmd.Flags().GetString("server")
	out := cmd.OutOrStdout()

	if short {
		fmt.Fprintf(out, "v%s\n", Version)
		return nil
	}

	info := buildInfo{
		Version:   Version,
		GitCommit: GitCommit,
		BuildTime: BuildTime,
		GoVersion: runtime.Version(),
		Platform:  runtime.GOOS + "/" + runtime.GOARCH,
	}
	if server != "" {
		remote, err := fetchServerVersion(cmd.Context(), server)
		if err != nil {
			return err
		}
		info.Server = remote
	}

	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	rule := strings.Repeat("-", 40)
	fmt.Fprintln(out, "Transcript Sync")
	fmt.Fprintln(out, rule)
	fmt.Fprintf(out, "Version:      v%s\n", info.Version)
	fmt.Fprintf(out, "Git Commit:   %s\n", info.GitCommit)
	fmt.Fprintf(out, "Build Time:   %s\n", info.BuildTime)
	fmt.Fprintf(out, "Go Version:   %s\n", info.GoVersion)
	fmt.Fprintf(out, "OS/Arch:      %s\n", info.Platform)
	if info.Server != nil {
		fmt.Fprintf(out, "Server:       %s v%s (%s)\n", info.Server.Name, info.Server.Version, info.Server.URL)
		if info.Server.Version != info.Version {
			fmt.Fprintln(out, "Warning:      client and server versions differ")
		}
	}
	fmt.Fprintln(out, rule)
	return nil
}

// fetchServerVersion reads the version document of a running server
func fetchServerVersion(ctx context.Context, baseURL string) (*serverInfo, error) {
	ctx, cancel := context.WithTimeout(ctx, serverVersionTimeout)
	defer cancel()

	url := strings.TrimRight(baseURL, "/") + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL %q: %w", baseURL, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var info serverInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode server version: %w", err)
	}
	info.URL = baseURL
	return &info, nil
}
