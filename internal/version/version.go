package version

// Version is the current build version. Override at build time with:
//
//	go build -ldflags="-X 'github.com/Phuc-215/WEBRTC/internal/version.Version=v1.0.0'"
var Version = "dev"
