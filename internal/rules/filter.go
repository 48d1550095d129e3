package rules

// DefaultInclude is the built-in list of deletion candidates: backups,
// editor swap files, bytecode caches, generated reports and example data,
// and generated HTML docs.
func DefaultInclude() Set {
	return Set{
		{Kind: KindSuffix, Pattern: ".backup"},
		{Kind: KindSuffix, Pattern: "~"},
		{Kind: KindSuffix, Pattern: ".pyc"},
		{Kind: KindSegments, Pattern: "examples/reports"},
		{Kind: KindSegments, Pattern: "examples/application_generated_data"},
		{Kind: KindSuffix, Pattern: "README.html"},
	}
}

// DefaultExclude protects version-control metadata.
func DefaultExclude() Set {
	return Set{
		{Kind: KindSegments, Pattern: ".git"},
		{Kind: KindGlob, Pattern: "**/*.svn"},
		{Kind: KindGlob, Pattern: "**/*.svn/**"},
	}
}

// Filter combines an inclusion and an exclusion set. Exclusion always wins.
type Filter struct {
	Include Set
	Exclude Set
}

// DefaultFilter returns the built-in inclusion and exclusion rules.
func DefaultFilter() Filter {
	return Filter{Include: DefaultInclude(), Exclude: DefaultExclude()}
}

// Included reports the first inclusion rule matching rel.
func (f Filter) Included(rel string) (Rule, bool) {
	return f.Include.Match(rel)
}

// Excluded reports whether rel is protected.
func (f Filter) Excluded(rel string) bool {
	_, ok := f.Exclude.Match(rel)
	return ok
}

// ShouldDelete is included AND NOT excluded. The returned rule is the
// inclusion rule that selected rel.
func (f Filter) ShouldDelete(rel string) (Rule, bool) {
	if f.Excluded(rel) {
		return Rule{}, false
	}
	return f.Included(rel)
}

// Validate checks both rule sets.
func (f Filter) Validate() error {
	if err := f.Include.Validate(); err != nil {
		return err
	}
	return f.Exclude.Validate()
}
