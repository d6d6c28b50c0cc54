package verify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Question is one quiz question parsed out of generated content. The
// answer index is always zero-based and within the option range after
// verification.
type Question struct {
	Question     string
	CodeSnippet  string
	Options      []string
	CorrectIndex int
	Explanation  string

	// IndexCoerced is true when the generated answer index was out of
	// range or ambiguous and had to be normalized.
	IndexCoerced bool
}

var (
	quizStartRe   = regexp.MustCompile(`(?i)<div\s+class="quiz-question"[^>]*>`)
	dataCorrectRe = regexp.MustCompile(`data-correct="([^"]*)"`)
	optionRe      = regexp.MustCompile(`(?is)<div\s+class="quiz-option"[^>]*>(.*?)</div>`)
	questionRe    = regexp.MustCompile(`(?is)<(?:p|h4)[^>]*>(.*?)</(?:p|h4)>`)
	snippetRe     = regexp.MustCompile(`(?is)<pre><code[^>]*>(.*?)</code></pre>`)
	explainRe     = regexp.MustCompile(`(?is)<div\s+class="quiz-explanation"[^>]*>(.*?)</div>`)
	letterHintRe  = regexp.MustCompile(`(?i)(?:answer|correct)\s*[:\-]\s*([A-D])\b`)
)

// normalizeQuiz parses quiz question blocks out of content and normalizes
// each answer index to a valid zero-based value, rewriting the data-correct
// attribute in place when it changes. Content without quiz blocks is
// returned untouched.
func normalizeQuiz(content string) (string, []Question, []string, bool) {
	markers := quizStartRe.FindAllStringIndex(content, -1)
	if len(markers) == 0 {
		return content, nil, nil, false
	}

	var (
		b         strings.Builder
		questions []Question
		warnings  []string
		changed   bool
	)
	b.WriteString(content[:markers[0][0]])
	for k, m := range markers {
		end := len(content)
		if k+1 < len(markers) {
			end = markers[k+1][0]
		}
		segment := content[m[0]:end]

		newSegment, q, warn, ok := normalizeSegment(segment, k)
		b.WriteString(newSegment)
		if !ok {
			continue
		}
		questions = append(questions, q)
		if warn != "" {
			warnings = append(warnings, warn)
		}
		if newSegment != segment {
			changed = true
		}
	}
	return b.String(), questions, warnings, changed
}

// normalizeSegment handles a single quiz-question block. Blocks with no
// options are passed through unparsed.
func normalizeSegment(segment string, n int) (string, Question, string, bool) {
	opts := optionRe.FindAllStringSubmatch(segment, -1)
	if len(opts) == 0 {
		return segment, Question{}, "", false
	}

	q := Question{}
	for _, o := range opts {
		q.Options = append(q.Options, strings.TrimSpace(o[1]))
	}
	if m := questionRe.FindStringSubmatch(segment); m != nil {
		q.Question = strings.TrimSpace(m[1])
	}
	if m := snippetRe.FindStringSubmatch(segment); m != nil {
		q.CodeSnippet = strings.TrimSpace(m[1])
	}
	if m := explainRe.FindStringSubmatch(segment); m != nil {
		q.Explanation = strings.TrimSpace(m[1])
	}

	rawAttr := ""
	raw := 0
	if m := dataCorrectRe.FindStringSubmatch(segment); m != nil {
		rawAttr = m[1]
		if v, err := strconv.Atoi(strings.TrimSpace(rawAttr)); err == nil {
			raw = v
		} else {
			raw = -1
		}
	}

	index, coerced := normalizeIndex(raw, len(q.Options), segment)
	q.CorrectIndex = index
	q.IndexCoerced = coerced

	warn := ""
	if coerced {
		warn = fmt.Sprintf("quiz question %d: answer index %q normalized to %d", n+1, rawAttr, index)
	}
	if normalized := strconv.Itoa(index); rawAttr != normalized {
		segment = strings.Replace(segment, `data-correct="`+rawAttr+`"`, `data-correct="`+normalized+`"`, 1)
	}
	return segment, q, warn, true
}

// normalizeIndex maps a generated answer index onto the valid zero-based
// range. An explicit letter hint in the block wins; a value already in
// range is kept unchanged, a value exactly one past the end is treated as
// one-based and shifted down, and anything else is clamped. Re-running the
// mapping over its own output is a no-op.
func normalizeIndex(raw, count int, segment string) (int, bool) {
	if count <= 0 {
		return 0, raw != 0
	}

	if m := letterHintRe.FindStringSubmatch(segment); m != nil {
		letter := int(strings.ToUpper(m[1])[0] - 'A')
		if letter < count {
			return letter, letter != raw
		}
	}

	if raw >= 0 && raw < count {
		return raw, false
	}
	if raw == count {
		return raw - 1, true
	}
	if raw > count {
		return count - 1, true
	}
	return 0, true
}
