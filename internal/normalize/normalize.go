// Package normalize turns whatever the generate endpoint returned into
// display-ready message content.
//
// The backend may answer with a string that interleaves progress narration
// with one JSON object, or with an already-decoded value. Normalize never
// fails: anything it cannot make sense of is shown as text.
package normalize

import (
	"bytes"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/jasperwreed/guidera-chat/internal/models"
)

// narrationPrefixes are progress lines the backend streams ahead of the
// payload.
var narrationPrefixes = []string{
	"Picking best model for you",
	"Checking compliance and generating response",
	"Running policy checks",
	"Running compliance checks",
}

var lineBreak = regexp.MustCompile(`\r?\n`)

// Result is the canonical form of one backend payload. Content is always
// set; the remaining fields are filled when the payload carried them.
type Result struct {
	Kind       models.ResponseKind
	Content    string
	Model      string
	Compliance *models.ComplianceCheck
	Plagiarism *models.PlagiarismCheck
	Metrics    *models.PerformanceMetrics

	// Fields is the cleaned top-level object for structured payloads.
	Fields map[string]any
}

// ComplianceStatus returns the detected status, or "" when the payload had
// none.
func (r Result) ComplianceStatus() models.ComplianceStatus {
	if r.Compliance == nil {
		return ""
	}
	return r.Compliance.Status
}

// Apply copies the result onto msg and marks it resolved.
func (r Result) Apply(msg *models.Message) {
	msg.Content = r.Content
	msg.Kind = r.Kind
	msg.Model = r.Model
	msg.ComplianceCheck = r.Compliance
	msg.PlagiarismCheck = r.Plagiarism
	msg.PerformanceMetrics = r.Metrics
	msg.Pending = false
}

func Normalize(raw any) Result {
	switch v := raw.(type) {
	case nil:
		return Result{Kind: models.KindEmpty}
	case string:
		return fromText(v)
	case []byte:
		return fromText(string(v))
	case json.RawMessage:
		return fromJSON(v)
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return textResult(fmt.Sprintf("%v", raw))
	}
	return fromJSON(data)
}

func fromText(s string) Result {
	var kept []string
	for _, line := range lineBreak.Split(s, -1) {
		if isNarration(line) {
			continue
		}
		kept = append(kept, line)
	}

	for i, line := range kept {
		if !strings.HasPrefix(strings.TrimSpace(line), "{") {
			continue
		}
		v, err := decodeFirst([]byte(strings.Join(kept[i:], "\n")))
		if err != nil {
			break
		}
		return fromValue(v)
	}
	return textResult(strings.Join(kept, "\n"))
}

func fromJSON(data []byte) Result {
	v, err := decodeFirst(data)
	if err != nil {
		return textResult(string(data))
	}
	if s, ok := v.(string); ok {
		return fromText(s)
	}
	return fromValue(v)
}

func fromValue(v any) Result {
	if v == nil {
		return Result{Kind: models.KindEmpty}
	}
	stripNER(v)

	content, err := encode(v)
	if err != nil {
		return textResult(fmt.Sprintf("%v", v))
	}

	r := Result{Kind: models.KindStructured, Content: content}
	obj, ok := v.(map[string]any)
	if !ok {
		return r
	}

	r.Fields = obj
	r.Model = extractModel(obj)
	r.Metrics = extractMetrics(obj)
	r.Plagiarism = extractPlagiarism(obj)
	r.Compliance = extractCompliance(obj)

	switch {
	case r.Compliance != nil:
		r.Kind = kindForStatus(r.Compliance.Status)
	case hasPolicyViolation(obj):
		r.Kind = models.KindPolicyViolation
	}
	return r
}

func textResult(s string) Result {
	if strings.TrimSpace(s) == "" {
		return Result{Kind: models.KindEmpty}
	}
	return Result{Kind: models.KindPlainText, Content: s}
}

func isNarration(line string) bool {
	trimmed := strings.TrimSpace(line)
	for _, prefix := range narrationPrefixes {
		if strings.HasPrefix(trimmed, prefix) {
			return true
		}
	}
	return false
}

// decodeFirst reads one JSON value and ignores anything after it.
func decodeFirst(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// encode writes v as 2-space indented JSON. Map keys come out sorted.
func encode(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// stripNER removes the internal entity-recognition block from every
// compliance_report, however deeply nested.
func stripNER(v any) {
	switch node := v.(type) {
	case map[string]any:
		for key, child := range node {
			if key == "compliance_report" {
				if report, ok := child.(map[string]any); ok {
					delete(report, "ner")
				}
			}
			stripNER(child)
		}
	case []any:
		for _, child := range node {
			stripNER(child)
		}
	}
}

func kindForStatus(s models.ComplianceStatus) models.ResponseKind {
	switch s {
	case models.CompliancePassed:
		return models.KindPassed
	case models.ComplianceWarning:
		return models.KindWarning
	case models.ComplianceFailed:
		return models.KindFailed
	}
	return models.KindStructured
}
