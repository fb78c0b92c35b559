package preview

// Preview represents a window of source lines around a match
type Preview struct {
	File       string `json:"file"`
	Code       string `json:"code"`       // lines joined with their original line feeds
	Language   string `json:"language"`   // display language tag
	StartLine  int    `json:"startLine"`  // 1-based line number of the first line in Code
	TargetLine int    `json:"targetLine"` // 1-based absolute line of the match
}

// HitLine returns the 1-based position of the target line within Code
func (p *Preview) HitLine() int {
	return p.TargetLine - p.StartLine + 1
}
