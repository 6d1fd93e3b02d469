package repo

// set by -ldflags at build time
var (
	BuildVersion = "dev"
	BuildBranch  = ""
	BuildCommit  = ""
	BuildDate    = ""
	GoVersion    = ""
	Platform     = ""
)
