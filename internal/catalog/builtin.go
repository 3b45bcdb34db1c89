package catalog

// builtinReleases captures known-good download artifacts per tool and
// platform, used when the remote catalog has no entry or is unreachable.
// Content hashes are currently left blank; populate them as part of the
// release process when the authoritative SHA256 values are available.
var builtinReleases = map[string]map[string]Release{
	"yt-dlp": {
		"darwin-amd64": {
			Version:        "2025.06.09",
			DownloadURL:    "https://github.com/yt-dlp/yt-dlp/releases/download/2025.06.09/yt-dlp_macos",
			BinaryFileName: "yt-dlp",
		},
		"darwin-arm64": {
			Version:        "2025.06.09",
			DownloadURL:    "https://github.com/yt-dlp/yt-dlp/releases/download/2025.06.09/yt-dlp_macos",
			BinaryFileName: "yt-dlp",
		},
		"linux-amd64": {
			Version:        "2025.06.09",
			DownloadURL:    "https://github.com/yt-dlp/yt-dlp/releases/download/2025.06.09/yt-dlp_linux",
			BinaryFileName: "yt-dlp",
		},
		"linux-arm64": {
			Version:        "2025.06.09",
			DownloadURL:    "https://github.com/yt-dlp/yt-dlp/releases/download/2025.06.09/yt-dlp_linux_aarch64",
			BinaryFileName: "yt-dlp",
		},
		"windows-amd64": {
			Version:        "2025.06.09",
			DownloadURL:    "https://github.com/yt-dlp/yt-dlp/releases/download/2025.06.09/yt-dlp.exe",
			BinaryFileName: "yt-dlp.exe",
		},
	},
	"ffmpeg": {
		"darwin-amd64": {
			Version:        "b6.0",
			DownloadURL:    "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/ffmpeg-darwin-x64",
			BinaryFileName: "ffmpeg",
		},
		"darwin-arm64": {
			Version:        "b6.0",
			DownloadURL:    "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/ffmpeg-darwin-arm64",
			BinaryFileName: "ffmpeg",
		},
		"linux-amd64": {
			Version:        "b6.0",
			DownloadURL:    "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/ffmpeg-linux-x64",
			BinaryFileName: "ffmpeg",
		},
		"linux-arm64": {
			Version:        "b6.0",
			DownloadURL:    "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/ffmpeg-linux-arm64",
			BinaryFileName: "ffmpeg",
		},
		"windows-amd64": {
			Version:        "b6.0",
			DownloadURL:    "https://github.com/eugeneware/ffmpeg-static/releases/download/b6.0/ffmpeg-win32-x64",
			BinaryFileName: "ffmpeg.exe",
		},
	},
}

// KnownTools returns the tool names covered by the built-in table.
func KnownTools() []string {
	return []string{"ffmpeg", "yt-dlp"}
}

func lookupBuiltinRelease(tool, platform string) (Release, bool) {
	perTool, ok := builtinReleases[tool]
	if !ok {
		return Release{}, false
	}
	rel, ok := perTool[platform]
	return rel, ok
}
