package mcpserver

// NoteFormatContract describes the Markdown subset that the vault indexer
// understands. LLM consumers should follow it when writing notes.
const NoteFormatContract = `# Vault Note Format

Notes are UTF-8 Markdown files ending in .md or .markdown. A note's *name* is its
file stem: ` + "`" + `projects/roadmap.md` + "`" + ` has the name ` + "`" + `roadmap` + "`" + `.

## Front-matter

An optional header delimited by ` + "`" + `---` + "`" + ` lines at the top of the file. It is
flat: one ` + "`" + `key: value` + "`" + ` per line, no nesting, no multi-line values. Values
are kept as strings.

` + "```" + `markdown
---
title: Weekly standup
tags: [meeting-notes, project-x]
---
` + "```" + `

- ` + "`" + `title` + "`" + ` is the display title. Without it the note name is used.
- ` + "`" + `tags` + "`" + ` is a comma-separated list, brackets optional.

## Links

- ` + "`" + `[[target]]` + "`" + ` links to the note whose name is ` + "`" + `target` + "`" + `.
- ` + "`" + `[[target|shown text]]` + "`" + ` links to ` + "`" + `target` + "`" + ` with different display text.
- Targets are note names, not paths. When two notes share a name, links resolve
  to the one indexed last, so keep names unique.

## Tags

Words starting with ` + "`" + `#` + "`" + ` in the body are tags (` + "`" + `#idea` + "`" + `, ` + "`" + `#area/work` + "`" + `).
Trailing punctuation is dropped.

## Paths

Relative, forward slashes, no ` + "`" + `..` + "`" + ` segments. Files and directories whose
name starts with a dot are ignored by the indexer.
`
