package audit

import "strings"

// browserMarkers are checked in order; Edge and Chrome both carry the
// Chrome token, so the more specific markers come first.
var browserMarkers = []struct {
	token string
	name  string
}{
	{"Edg/", "Edge"},
	{"OPR/", "Opera"},
	{"Chrome/", "Chrome"},
	{"Firefox/", "Firefox"},
	{"Safari/", "Safari"},
	{"MSIE", "Internet Explorer"},
	{"Trident/", "Internet Explorer"},
}

var osMarkers = []struct {
	token string
	name  string
}{
	{"Windows NT", "Windows"},
	{"Android", "Android"},
	{"iPhone", "iOS"},
	{"iPad", "iOS"},
	{"Mac OS X", "macOS"},
	{"Linux", "Linux"},
}

// ParseUserAgent extracts a coarse browser and OS name from a User-Agent
// header. Unrecognized agents yield empty strings.
func ParseUserAgent(ua string) (browser, os string) {
	for _, m := range browserMarkers {
		if strings.Contains(ua, m.token) {
			browser = m.name
			break
		}
	}
	for _, m := range osMarkers {
		if strings.Contains(ua, m.token) {
			os = m.name
			break
		}
	}
	return browser, os
}
