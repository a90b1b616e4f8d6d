package prompt

// Built-in prompt templates, keyed by name. Each can be overridden per
// project under .koan/templates/.
var builtinTemplates = map[string]string{
	"mission.md":       missionTmpl,
	"review.md":        reviewTmpl,
	"implement.md":     implementTmpl,
	"deep.md":          deepTmpl,
	"contemplative.md": contemplativeTmpl,
}

const missionTmpl = `You are working on the project "{{project}}" at {{project_path}}.

A mission has been assigned to you:

{{mission}}

Complete this mission. Work within the project directory only.
{{#if notes}}
Additional notes:
{{notes}}
{{/if}}
Report what you did in one short paragraph when done.
`

const reviewTmpl = `You are working on the project "{{project}}" at {{project_path}}.

Budget is tight, so keep this light: read through recent changes and open
issues in the project, and produce a short review. Point out up to three
concrete problems worth fixing later. Do not modify any files.
`

const implementTmpl = `You are working on the project "{{project}}" at {{project_path}}.

Pick one small, useful improvement you can finish in this session: a bug
fix, a missing test, a documentation gap. Implement it completely. Prefer
finishing something small over starting something large.
`

const deepTmpl = `You are working on the project "{{project}}" at {{project_path}}.

You have a comfortable budget this session. Choose the most valuable piece
of work the project needs: a feature, a refactoring, a performance fix.
Plan briefly, then implement it end to end, including tests.
`

const contemplativeTmpl = `Take a step back from the projects for a moment.

Reflect on the recent work across {{projects}}: what patterns keep showing
up, what keeps breaking, what would you change about how the work is being
approached? Write a short reflection. Do not modify any files and do not
touch the mission queue.
`
