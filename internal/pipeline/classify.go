// Package pipeline implements the source classification, preparation, and
// enrichment stages of the travel recommendation pipeline.
package pipeline

import (
	"strings"

	"github.com/triptomat/trip-analyzer/internal/model"
)

var videoDomains = []string{
	"youtube.com",
	"youtu.be",
	"tiktok.com",
	"instagram.com",
}

var mapsDomains = []string{
	"goo.gl/maps",
	"google.com/maps",
	"googleusercontent.com",
	"maps.app.goo.gl",
}

// Classify tags a URL as a video, maps, or web source by substring match
// against fixed domain lists. Every input classifies; unmatched URLs fall
// to SourceWeb. Video domains win over maps domains.
func Classify(url string) model.SourceType {
	for _, d := range videoDomains {
		if strings.Contains(url, d) {
			return model.SourceVideo
		}
	}
	for _, d := range mapsDomains {
		if strings.Contains(url, d) {
			return model.SourceMaps
		}
	}
	return model.SourceWeb
}
