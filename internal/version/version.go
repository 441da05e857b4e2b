package version

import (
	"fmt"
	"runtime/debug"
	"strconv"
	"sync"
	"time"

	"github.com/rmitchellscott/kindling/internal/config"
)

// Stamped at build time with -ldflags "-X ...". See Makefile.
var (
	Version   = "0.1.0"
	BuildTime = "development"
	GitCommit = "unknown"
)

var (
	buildTimestampOnce sync.Once
	buildTimestamp     string
)

func String() string {
	return fmt.Sprintf("v%s", Version)
}

func Get() map[string]string {
	return map[string]string{
		"version":   Version,
		"buildTime": BuildTimestamp(),
		"gitCommit": GitCommit,
	}
}

// BuildTimestamp returns the build timestamp shown in error images and
// scripts. It is resolved once per process, in order of preference: the
// ldflags-stamped BuildTime, the VCS commit time recorded by the Go
// toolchain, SOURCE_DATE_EPOCH, and finally the process start time.
func BuildTimestamp() string {
	buildTimestampOnce.Do(func() {
		buildTimestamp = resolveBuildTimestamp(BuildTime, vcsTime(), sourceDateEpoch(), time.Now())
	})
	return buildTimestamp
}

func resolveBuildTimestamp(stamped, vcs, epoch string, now time.Time) string {
	if stamped != "" && stamped != "development" {
		return stamped
	}
	if vcs != "" {
		if t, err := time.Parse(time.RFC3339, vcs); err == nil {
			return FormatTimestamp(t)
		}
	}
	if epoch != "" {
		if secs, err := strconv.ParseInt(epoch, 10, 64); err == nil {
			return FormatTimestamp(time.Unix(secs, 0))
		}
	}
	return FormatTimestamp(now)
}

// FormatTimestamp renders t in UTC the way build timestamps are displayed.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

// sourceDateEpoch reads SOURCE_DATE_EPOCH, or the file named by
// SOURCE_DATE_EPOCH_FILE.
func sourceDateEpoch() string {
	return config.Get("SOURCE_DATE_EPOCH", "")
}

func vcsTime() string {
	info, ok := debug.ReadBuildInfo()
	if !ok {
		return ""
	}
	for _, s := range info.Settings {
		if s.Key == "vcs.time" {
			return s.Value
		}
	}
	return ""
}
