// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package qc

import "text/template"

var filterDetectPromptTmpl = template.Must(template.New("filter-detect").Parse(`Does the literature search query below contain explicit constraints on the
papers to return? Constraints include author names, publication date ranges
or years ("after 2018", "between 2015 and 2020"), a minimum or maximum
field-weighted citation impact (FWCI), a citation percentile ("top 10%"),
a minimum number of citations, citations in a particular year, or a minimum
relevance score. Topics alone are not constraints.

Query:
{{.Query}}
`))

const filterDetectSchema = `{
  "type": "object",
  "properties": {"has_filter_instructions": {"type": "boolean"}},
  "required": ["has_filter_instructions"]
}`

var decidePromptTmpl = template.Must(template.New("qc-decide").Parse(`You review literature search queries before retrieval.

Choose exactly one decision:
- accept: the query and keywords are specific and searchable as they are.
- reformulate: the query is ambiguous or poorly worded and should be rewritten.
- broaden: the query is so narrow it will likely match very few papers.
- narrow: the query is so broad it will return unfocused results.
- split: the query mixes several distinct topics that should be searched separately.
- reject: despite passing screening, the query cannot be served as an academic literature search.

Give a one or two sentence justification.

Query:
{{.Query}}

Current keywords:
{{range .Keywords}}- {{.}}
{{end}}`))

const decideSchema = `{
  "type": "object",
  "properties": {
    "decision": {"type": "string", "enum": ["accept", "reformulate", "broaden", "narrow", "split", "reject"]},
    "justification": {"type": "string"}
  },
  "required": ["decision", "justification"]
}`

var reformulatePromptTmpl = template.Must(template.New("qc-reformulate").Parse(`Rewrite the literature search query below so it is clear and unambiguous,
keeping the user's intent and any constraints (dates, authors, citation
thresholds) verbatim. Then give 2 to 5 specific keyword phrases for the
rewritten query.

Query:
{{.Query}}

Current keywords:
{{range .Keywords}}- {{.}}
{{end}}`))

var broadenPromptTmpl = template.Must(template.New("qc-broaden").Parse(`The literature search query below is too narrow. Rewrite it to cover the
surrounding research area while keeping its core topic and any constraints
(dates, authors, citation thresholds) verbatim. Then give 2 to 5 keyword
phrases that include broader synonyms and parent topics.

Query:
{{.Query}}

Current keywords:
{{range .Keywords}}- {{.}}
{{end}}`))

var narrowPromptTmpl = template.Must(template.New("qc-narrow").Parse(`The literature search query below is too broad. Rewrite it to focus on the
most likely specific research question, keeping any constraints (dates,
authors, citation thresholds) verbatim. Then give 2 to 5 precise keyword
phrases for the focused query.

Query:
{{.Query}}

Current keywords:
{{range .Keywords}}- {{.}}
{{end}}`))

var splitPromptTmpl = template.Must(template.New("qc-split").Parse(`The literature search query below mixes several distinct topics. Split it
into 2 or 3 focused sub-queries, then give 2 to 5 keyword phrases that
together cover all the sub-queries. Keep any constraints (dates, authors,
citation thresholds) in the rewritten combined query.

Query:
{{.Query}}

Current keywords:
{{range .Keywords}}- {{.}}
{{end}}`))

const toolSchema = `{
  "type": "object",
  "properties": {
    "query": {"type": "string"},
    "keywords": {"type": "array", "items": {"type": "string"}},
    "sub_queries": {"type": "array", "items": {"type": "string"}}
  },
  "required": ["query", "keywords"]
}`
