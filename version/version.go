package version

import (
	"fmt"
)

// Version information, set with -ldflags at build time.
var (
	BuildTS   = "None"
	GitHash   = "None"
	GitBranch = "None"
	Version   = "None"
)

type Info struct {
	Version   string `json:"version"`
	GitBranch string `json:"gitBranch"`
	GitCommit string `json:"gitCommit"`
	BuildTime string `json:"buildTime"`
}

func GetVersion() string {
	if GitHash != "" {
		h := GitHash
		if len(h) > 7 {
			h = h[:7]
		}
		return fmt.Sprintf("%s-%s", Version, h)
	}
	return Version
}

func Get() Info {
	return Info{
		Version:   GetVersion(),
		GitBranch: GitBranch,
		GitCommit: GitHash,
		BuildTime: BuildTS,
	}
}

// Printer prints the build version.
func Printer() {
	i := Get()
	fmt.Println("Version:          ", i.Version)
	fmt.Println("Git Branch:       ", i.GitBranch)
	fmt.Println("Git Commit:       ", i.GitCommit)
	fmt.Println("Build Time (UTC): ", i.BuildTime)
}
