package deps

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"reelmill/internal/config"
)

// Requirement defines an external dependency reelmill relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Path        string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// PipelineRequirements lists the binaries the pipeline stages invoke.
func PipelineRequirements(cfg *config.Config) []Requirement {
	return []Requirement{
		{
			Name:        "aria2c",
			Command:     cfg.Acquisition.Aria2cBinary,
			Description: "Required for magnet downloads",
		},
		{
			Name:        "FFmpeg",
			Command:     cfg.Segmentation.FFmpegBinary,
			Description: "Required for clip rendering",
		},
		{
			Name:        "FFprobe",
			Command:     cfg.Segmentation.FFprobeBinary,
			Description: "Required for duration probing",
		},
	}
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		path, err := ResolvePath(cmd)
		if err != nil {
			status.Detail = err.Error()
			results = append(results, status)
			continue
		}
		status.Path = path
		status.Available = true
		results = append(results, status)
	}
	return results
}

// Missing returns the required (non-optional) dependencies that are unavailable.
func Missing(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}

// ResolvePath resolves command to an executable path. Commands containing a
// path separator are checked directly; bare names are looked up on PATH.
func ResolvePath(command string) (string, error) {
	command = strings.TrimSpace(command)
	if strings.ContainsRune(command, filepath.Separator) {
		info, err := os.Stat(command)
		if err != nil {
			return "", fmt.Errorf("binary %q not found", command)
		}
		if !isExecutable(info) {
			return "", fmt.Errorf("binary %q is not executable", command)
		}
		return command, nil
	}
	path, err := exec.LookPath(command)
	if err != nil {
		return "", fmt.Errorf("binary %q not found", command)
	}
	return path, nil
}

func isExecutable(info os.FileInfo) bool {
	if info == nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}
