package augment

import "strings"

// Parsed is the structured bag extracted from a free-text reply.
type Parsed struct {
	Recommendations []string // candidate action lines, capped by the parser
	ObstacleSignal  bool     // the reply mentioned something blocking progress
}

// Parser turns a raw generative reply into a Parsed result. It is an
// isolated, replaceable strategy: the keyword heuristic below can be
// swapped for structured-output parsing without touching the synthesizer.
type Parser interface {
	Parse(raw string) Parsed
}

// MaxParsedRecommendations caps how many candidate recommendations one
// reply can contribute.
const MaxParsedRecommendations = 3

// recommendationKeywords mark a line as a candidate recommendation.
var recommendationKeywords = []string{"recommend", "suggest", "should", "consider"}

// obstacleKeywords mark the reply as signalling an obstacle.
var obstacleKeywords = []string{"obstacle", "blocked", "blocker", "stuck"}

// KeywordParser is the default Parser: a line containing any recommendation
// keyword (case-insensitive) is kept as a candidate recommendation, up to
// the cap; any obstacle keyword anywhere in the reply sets the obstacle
// signal.
type KeywordParser struct{}

// Parse implements Parser.
func (KeywordParser) Parse(raw string) Parsed {
	var parsed Parsed

	lower := strings.ToLower(raw)
	for _, kw := range obstacleKeywords {
		if strings.Contains(lower, kw) {
			parsed.ObstacleSignal = true
			break
		}
	}

	for _, line := range strings.Split(raw, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if !containsAnyKeyword(line, recommendationKeywords) {
			continue
		}
		parsed.Recommendations = append(parsed.Recommendations, line)
		if len(parsed.Recommendations) >= MaxParsedRecommendations {
			break
		}
	}

	return parsed
}

func containsAnyKeyword(line string, keywords []string) bool {
	lower := strings.ToLower(line)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
