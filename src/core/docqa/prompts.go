package docqa

import (
	"bytes"
	"fmt"
	"text/template"
)

const SummaryQuestion = "Summarize the following content:"

const answerSystemPrompt = `You answer questions about the user's documents.
Use only the context below. If the context does not contain the answer, say that you don't know instead of making one up.
{{- if .Chunks}}

Context:
{{range $i, $c := .Chunks}}
[{{inc $i}}] {{$c.Filename}}, page {{$c.Page}}
{{$c.Content}}
{{end}}
{{- else}}

No relevant context was found in the documents.
{{- end}}`

const summaryPrompt = `{{.Question}}

{{range .Chunks}}{{.Content}}

{{end}}`

var (
	answerTemplate  = template.Must(template.New("answer").Funcs(template.FuncMap{"inc": func(i int) int { return i + 1 }}).Parse(answerSystemPrompt))
	summaryTemplate = template.Must(template.New("summary").Parse(summaryPrompt))
)

type promptData struct {
	Question string
	Chunks   []SearchResultChunk
}

func executeTemplate(tmpl *template.Template, data promptData) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// fitContext keeps chunks in the given order until the token budget is spent;
// the first chunk is always kept.
func fitContext(chunks []SearchResultChunk, budget int) []SearchResultChunk {
	used := 0
	for i, c := range chunks {
		used += estimateTokens(c.Content)
		if used > budget && i > 0 {
			return chunks[:i]
		}
	}
	return chunks
}
