package version

import "fmt"

// Version, GitCommit, and BuildDate are set at build time via ldflags:
//
//	go build -ldflags "-X github.com/topolens/topolens/pkg/version.Version=v1.0.0 \
//	  -X github.com/topolens/topolens/pkg/version.GitCommit=abc1234 \
//	  -X github.com/topolens/topolens/pkg/version.BuildDate=2026-07-30T00:00:00Z"
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Info returns a one-line human-readable version summary for the CLI's
// `version` command.
func Info() string {
	return fmt.Sprintf("topolens %s (commit %s, built %s)", Version, GitCommit, BuildDate)
}
