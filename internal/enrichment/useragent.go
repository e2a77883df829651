// Package enrichment derives device metadata from raw request headers so
// session records show where a login came from.
package enrichment

import (
	"github.com/mssola/user_agent"
)

type DeviceInfo struct {
	Browser string
	OS      string
	Device  string
}

func ParseUserAgent(uaString string) *DeviceInfo {
	ua := user_agent.New(uaString)

	browser, _ := ua.Browser()
	device := "desktop"

	if ua.Mobile() {
		device = "mobile"
	} else if ua.Bot() {
		device = "bot"
	}

	return &DeviceInfo{
		Browser: browser,
		OS:      ua.OS(),
		Device:  device,
	}
}
