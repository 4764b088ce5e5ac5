// Package prompts contains the templates sent to the oracles.
//
// Prompt text is Go code rather than config files because it is program
// logic: templates are validated by tests and versioned with the code
// that parses their replies. Each prompt category gets its own file
// with an exported function that accepts the dynamic parts and returns
// the fully rendered prompt string. Placeholders use {{name}} form and
// are substituted by Render.
package prompts
