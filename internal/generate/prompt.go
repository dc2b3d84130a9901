package generate

import (
	"fmt"
	"strings"

	"github.com/Sachin-Mamoru/error-fix-engine/internal/catalog"
)

// maxRelatedLinks caps how many related links the prompt asks for; the
// sidebar shows the same set, more than this reads like link stuffing.
const maxRelatedLinks = 4

// BuildPrompt assembles the generation request for one topic. Everything in
// the prompt derives from the topic and static parameters, which is what
// makes the content fingerprint sufficient for staleness detection.
func BuildPrompt(t catalog.Topic, relatedSlugs []string, author Author, wordsMin, wordsMax int) string {
	if len(relatedSlugs) > maxRelatedLinks {
		relatedSlugs = relatedSlugs[:maxRelatedLinks]
	}
	var relatedBlock string
	if len(relatedSlugs) == 0 {
		relatedBlock = "   *(none)*"
	} else {
		links := make([]string, len(relatedSlugs))
		for i, slug := range relatedSlugs {
			links[i] = fmt.Sprintf("- [%s](/errors/%s.html)", slug, slug)
		}
		relatedBlock = strings.Join(links, "\n")
	}

	return fmt.Sprintf(`You are %s, a %s, writing a practical,
SEO-optimised troubleshooting guide from personal experience.
Write a complete Markdown article for the error below.

**Error:** %s
**Tool / Platform:** %s
**Context:** %s
**Short description:** %s

### Article requirements
1. Open with an H1 that is exactly: `+"`# %s`"+`
2. Right after H1, add a short one-sentence meta-description as a blockquote
   (starts with `+"`> `"+`) — used for SEO preview.
3. Include ALL of the following H2 sections in this order:
   - `+"`## What This Error Means`"+`
   - `+"`## Why It Happens`"+`
   - `+"`## Common Causes`"+`
   - `+"`## Step-by-Step Fix`"+`  (numbered steps, include shell/code blocks where relevant)
   - `+"`## Code Examples`"+`     (concise, copy-paste ready)
   - `+"`## Environment-Specific Notes`"+`  (cloud, Docker, local dev differences)
   - `+"`## Frequently Asked Questions`"+`  (3–5 Q&A pairs in bold-question style)
4. End with a `+"`## Related Errors`"+` section that includes these Markdown links:
%s
5. Length: %d–%d words.
6. Tone: calm, direct, engineer-to-engineer. No hype, no filler sentences.
7. Include at least two code blocks with syntax highlighting hints (e.g. `+"```bash or ```python"+`).
8. Do NOT include any YAML front-matter.
9. Do NOT include any HTML tags.
10. Occasionally use first-person phrases like "In my experience…" or "I've seen this in production when…" — it should read like a real engineer wrote it.
11. Do NOT mention AI, do NOT say this article was generated, do NOT say "As an AI" or anything similar.
12. End the article body before any author signature — the byline is handled separately.

Write only the Markdown article — no preamble, no commentary outside the article.
`,
		author.Name, author.Title,
		t.ErrorName, t.Tool, t.Context, t.Description,
		t.ErrorName,
		relatedBlock,
		wordsMin, wordsMax,
	)
}
