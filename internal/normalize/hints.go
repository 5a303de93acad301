package normalize

import (
	"regexp"
	"strings"

	"github.com/amirhosseinyavari021/CCG-sub001/pkg/models"
)

// OS-specific command vocabularies for the advisory mismatch hint. Matching
// is keyword-substring based and deliberately biased toward names that are
// unlikely to appear in ordinary prose.
var (
	windowsMarkers = []string{
		"get-childitem", "get-process", "get-service", "set-executionpolicy",
		"copy-item", "remove-item", "robocopy", "ipconfig", "netsh",
		"powershell", "cmdlet", "reg add", "tasklist",
	}
	macMarkers = []string{
		"brew ", "pbcopy", "pbpaste", "launchctl", "defaults write",
		"diskutil", "softwareupdate", "osascript",
	}
	linuxMarkers = []string{
		"systemctl", "apt-get", "apt ", "yum ", "dnf ", "pacman",
		"journalctl", "iptables", "chmod", "chown", "grep ", "awk ",
	}
	networkMarkers = []string{
		"show running-config", "show ip route", "conf t", "vlan ",
		"interface gigabitethernet", "no shutdown",
	}
)

var wordSplit = regexp.MustCompile(`\s+`)

// SuggestPlatform scans free-form request text for OS-specific command names
// and returns the platform family they suggest when it conflicts with the
// declared platform. The result is a best-effort hint only; an empty string
// means no conflict was detected.
func SuggestPlatform(text, declared string) string {
	t := " " + strings.ToLower(strings.TrimSpace(wordSplit.ReplaceAllString(text, " "))) + " "
	if t == "  " {
		return ""
	}

	detected := ""
	switch {
	case containsAny(t, windowsMarkers):
		detected = models.PlatformWindows
	case containsAny(t, macMarkers):
		detected = models.PlatformMacOS
	case containsAny(t, networkMarkers):
		detected = models.PlatformNetwork
	case containsAny(t, linuxMarkers):
		detected = models.PlatformLinux
	}

	if detected == "" || detected == CoercePlatform(declared) {
		return ""
	}
	return detected
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}
