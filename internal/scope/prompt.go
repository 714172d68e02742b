// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package scope

import "text/template"

var classifyPromptTmpl = template.Must(template.New("scope").Parse(`You screen queries for an academic paper recommendation service.

Decide whether the query below is a request to find academic literature.
Reject it when it is a greeting or small talk, a nonsensical or random string,
or a request unrelated to searching scholarly papers (weather, shopping,
coding help, personal advice).

If the query is valid, extract between 2 and 5 keyword phrases that are
specific enough to drive a literature search. Prefer multi-word expressive
phrases ("federated learning for medical imaging") over single generic words
("learning", "data"). Do not include dates, author names or citation
thresholds as keywords.

If the query is not valid, explain why in one short phrase (short_explanation),
in one or two sentences (explanation), and suggest how the user could
rephrase it as a literature search (suggestion).

Query:
{{.Query}}
`))

const classifySchema = `{
  "type": "object",
  "properties": {
    "valid": {"type": "boolean"},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "short_explanation": {"type": "string"},
    "explanation": {"type": "string"},
    "suggestion": {"type": "string"}
  },
  "required": ["valid"]
}`
