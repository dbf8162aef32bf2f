package features

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// capsWhitelist holds acronyms that are not shouting.
var capsWhitelist = toSet(
	"I", "AI", "API", "SaaS", "CEO", "CTO", "CFO", "COO", "VP", "AWS", "GCP", "SQL",
	"CSS", "HTML", "JSON", "XML", "HTTP", "HTTPS", "URL", "UI", "UX", "MVP", "KPI",
	"ROI", "B2B", "B2C", "USA", "UK", "CRUD", "REST", "SDK", "CLI", "IDE", "GPU", "CPU",
	"RAM", "SSD", "SEO", "CRM", "ERP", "IoT", "NLP", "ML", "LLM", "GPT", "VPN", "OK",
	"ASAP", "FAQ", "FYI", "TL", "DR", "TLDR", "PM", "AM", "BREAKING", "UPDATE", "NEW",
	"FREE",
)

var superlativeWords = toSet(
	"best", "worst", "never", "always", "everyone", "nobody", "insane", "incredible",
	"unbelievable", "impossible", "mind-blowing", "jaw-dropping", "life-changing",
	"guaranteed", "effortless", "instantly", "forever",
)

var hypeEmoji = map[rune]struct{}{
	'🚀': {}, '🔥': {}, '💯': {}, '🎯': {}, '💰': {}, '🏆': {}, '⚡': {}, '💪': {}, '🙌': {}, '✨': {},
}

var (
	moneyRegex = regexp.MustCompile(
		`(?i)\$[\d,.]+[km]?|\d+\s*(?:dollars?|thousand|million|k/(?:mo|yr|year|month))`)

	moneyContextRegex = regexp.MustCompile(
		`(?i)(?:sav(?:e|ing|ed)|replac(?:e|ing|ed)|earn(?:ing|ed)?|free|mak(?:e|ing)|` +
			`generat(?:e|ing)|worth|cost|revenue|income|profit|salary|per\s+(?:month|year|day))`)

	listicleHeaderRegex = regexp.MustCompile(`(?i)(?:here are|top|check out these)\s+\d+`)
	numberedItemRegex   = regexp.MustCompile(`(?:^|\n)\s*\d+[.)]\s`)
	threadRegex         = regexp.MustCompile(`(?i)thread\s*🧵|🧵\s*thread|\b(?:a\s+)?thread\s*[⬇↓👇]`)

	rhetoricalHooks = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:want|wanna) to (?:know|learn|see|hear)`),
		regexp.MustCompile(`(?i)what if I told you`),
		regexp.MustCompile(`(?i)guess what`),
		regexp.MustCompile(`(?i)ready (?:for|to)`),
		regexp.MustCompile(`(?i)did you know`),
		regexp.MustCompile(`(?i)ever wonder`),
		regexp.MustCompile(`(?i)imagine (?:if|this|a world)`),
		regexp.MustCompile(`(?i)here['’]?s (?:the|a) (?:truth|secret|thing|reality)`),
		regexp.MustCompile(`(?i)(?:nobody|no one) (?:is )?talk(?:s|ing) about`),
		regexp.MustCompile(`(?i)let that sink in`),
		regexp.MustCompile(`(?i)read that again`),
	}
)

// moneyContextWindow is how far, in runes, a hype word may sit from an amount.
const moneyContextWindow = 80

// FormatBroFeature detects the one-short-line-per-thought "bro post" layout.
func FormatBroFeature(text string) Result {
	lines := nonBlankLines(text)
	if len(lines) < 3 {
		return Result{}
	}

	short := 0
	for _, l := range lines {
		if len(strings.Fields(l)) < 15 {
			short++
		}
	}
	ratio := float64(short) / float64(len(lines))
	if ratio < 0.7 {
		return Result{}
	}
	return fired((ratio-0.7)/0.3, fmt.Sprintf("Bro-post format (%d%% short lines)", percent(ratio)))
}

// CapsIntensityFeature measures shouting: words of three or more letters in all caps.
func CapsIntensityFeature(text string) Result {
	words := strings.Fields(text)
	if len(words) == 0 {
		return Result{}
	}

	caps := 0
	for _, w := range words {
		clean := asciiLetters(w)
		if len(clean) > 2 && clean == strings.ToUpper(clean) && !has(capsWhitelist, clean) {
			caps++
		}
	}
	ratio := float64(caps) / float64(len(words))
	if ratio <= 0.02 {
		return Result{}
	}
	return fired(ratio/0.15, fmt.Sprintf("ALL CAPS intensity %d%%", percent(ratio)))
}

// ExclamationDensityFeature measures the share of sentences ending in "!".
func ExclamationDensityFeature(text string) Result {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return Result{}
	}

	excl := 0
	for _, s := range sentences {
		if strings.HasSuffix(s, "!") {
			excl++
		}
	}
	ratio := float64(excl) / float64(len(sentences))
	if ratio <= 0.2 {
		return Result{}
	}
	return fired((ratio-0.2)/0.5, fmt.Sprintf("Exclamation density %d%%", percent(ratio)))
}

// MonetaryClaimsFeature counts money amounts that have a hype word close by.
func MonetaryClaimsFeature(text string) Result {
	hits := 0
	for _, loc := range moneyRegex.FindAllStringIndex(text, -1) {
		if moneyContextRegex.MatchString(window(text, loc[0], loc[1], moneyContextWindow)) {
			hits++
		}
	}
	if hits == 0 {
		return Result{}
	}
	return fired(float64(hits)*0.45, fmt.Sprintf("Monetary claim with hype context (%dx)", hits))
}

// ListicleFormatFeature detects "top N" headers, numbered lists and thread markers.
func ListicleFormatFeature(text string) Result {
	hasHeader := listicleHeaderRegex.MatchString(text)
	numbered := len(numberedItemRegex.FindAllStringIndex(text, -1))
	hasNumbered := numbered >= 3
	hasThread := threadRegex.MatchString(text)

	var score float64
	var parts []string
	if hasHeader {
		score += 0.4
		parts = append(parts, "listicle header")
	}
	if hasNumbered {
		score += 0.4
		parts = append(parts, fmt.Sprintf("%d numbered items", numbered))
	}
	if hasThread {
		score += 0.3
		parts = append(parts, "thread format")
	}
	if score == 0 {
		return Result{}
	}
	return fired(score, "Listicle format ("+strings.Join(parts, ", ")+")")
}

// RhetoricalHooksFeature counts distinct attention-grabbing phrasings.
func RhetoricalHooksFeature(text string) Result {
	hits := 0
	for _, re := range rhetoricalHooks {
		if re.MatchString(text) {
			hits++
		}
	}
	if hits == 0 {
		return Result{}
	}
	return fired(float64(hits)*0.35, fmt.Sprintf("Rhetorical hooks (%dx)", hits))
}

// SuperlativeDensityFeature measures absolute words like "best", "never", "guaranteed".
func SuperlativeDensityFeature(text string) Result {
	words := strings.Fields(strings.ToLower(text))
	if len(words) == 0 {
		return Result{}
	}

	hits := 0
	for _, w := range words {
		if has(superlativeWords, lowerLettersAndHyphens(w)) {
			hits++
		}
	}
	ratio := float64(hits) / float64(len(words))
	if ratio <= 0.01 {
		return Result{}
	}
	return fired(ratio/0.06, fmt.Sprintf("Superlative density %d%% (%dx)", percent(ratio), hits))
}

// HypeEmojiFeature measures rocket/fire/money emoji per word.
func HypeEmojiFeature(text string, wordCount int) Result {
	if wordCount == 0 {
		return Result{}
	}

	count := 0
	for _, r := range text {
		if _, ok := hypeEmoji[r]; ok {
			count++
		}
	}
	density := float64(count) / float64(wordCount)
	if density <= 0.02 {
		return Result{}
	}
	return fired(density/0.08, fmt.Sprintf("Hype emoji density %.1f%% (%dx)", density*100, count))
}

// WordCount returns the number of whitespace-separated words. Empty text has none.
func WordCount(text string) int {
	return len(strings.Fields(text))
}

func nonBlankLines(text string) []string {
	var lines []string
	for _, l := range strings.Split(text, "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

// splitSentences splits after every run of whitespace that follows '.', '!' or '?'
// and drops blank pieces. Returned sentences are trimmed.
func splitSentences(text string) []string {
	var sentences []string
	start := 0
	prevTerminal := false

	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		if unicode.IsSpace(r) && prevTerminal {
			end := i
			for i < len(text) {
				r, size = utf8.DecodeRuneInString(text[i:])
				if !unicode.IsSpace(r) {
					break
				}
				i += size
			}
			if s := strings.TrimSpace(text[start:end]); s != "" {
				sentences = append(sentences, s)
			}
			start = i
			prevTerminal = false
			continue
		}
		prevTerminal = r == '.' || r == '!' || r == '?'
		i += size
	}
	if s := strings.TrimSpace(text[start:]); s != "" {
		sentences = append(sentences, s)
	}
	return sentences
}

// window returns text[start:end] widened by up to n runes on each side.
func window(text string, start, end, n int) string {
	for i := 0; i < n && start > 0; i++ {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
	}
	for i := 0; i < n && end < len(text); i++ {
		_, size := utf8.DecodeRuneInString(text[end:])
		end += size
	}
	return text[start:end]
}

func asciiLetters(w string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') {
			return r
		}
		return -1
	}, w)
}

func lowerLettersAndHyphens(w string) string {
	return strings.Map(func(r rune) rune {
		if (r >= 'a' && r <= 'z') || r == '-' {
			return r
		}
		return -1
	}, w)
}

func percent(ratio float64) int {
	return int(math.Round(ratio * 100))
}

func toSet(words ...string) map[string]struct{} {
	m := make(map[string]struct{}, len(words))
	for _, w := range words {
		m[w] = struct{}{}
	}
	return m
}

func has(set map[string]struct{}, w string) bool {
	_, ok := set[w]
	return ok
}
