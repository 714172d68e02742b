// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import "text/template"

var extractPromptTmpl = template.Must(template.New("filter-extract").Parse(`Extract the explicit paper constraints from the literature search query
below. Only report constraints the user actually stated; leave everything
else out.

Rules:
- Dates use YYYY-MM-DD. "after 2018" means date_from 2019-01-01; "since
  2018" or "from 2018" means date_from 2018-01-01; "before 2020" means
  date_to 2019-12-31.
- "top 10%" or "top 10 percent by citations" means min_percentile 90.
- FWCI is the field-weighted citation impact; "FWCI above 2" means min_fwci 2.
- "at least 50 citations in 2023" is a yearly_citations entry.
- A relevance or similarity threshold between 0 and 1 is min_score.

Query:
{{.Query}}
`))

const extractSchema = `{
  "type": "object",
  "properties": {
    "authors": {"type": "array", "items": {"type": "string"}},
    "date_from": {"type": "string"},
    "date_to": {"type": "string"},
    "min_fwci": {"type": "number"},
    "max_fwci": {"type": "number"},
    "min_percentile": {"type": "number"},
    "min_citations": {"type": "integer"},
    "yearly_citations": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {"year": {"type": "integer"}, "min": {"type": "integer"}},
        "required": ["year", "min"]
      }
    },
    "min_score": {"type": "number"}
  }
}`
