package validation

import "regexp"

// Framework keyword signatures, checked in priority order: the more
// specific web frameworks before the libraries they're commonly paired
// with, falling back to the bare language when nothing matches.
var (
	flaskRE      = regexp.MustCompile(`(?i)\bflask\b`)
	fastapiRE    = regexp.MustCompile(`(?i)\bfastapi\b`)
	djangoRE     = regexp.MustCompile(`(?i)\bdjango\b`)
	pytestRE     = regexp.MustCompile(`(?i)\bpytest\b`)
	sqlalchemyRE = regexp.MustCompile(`(?i)\bsqlalchemy\b`)
	pandasRE     = regexp.MustCompile(`(?i)\bpandas\b|\bdataframe\b`)
	clickRE      = regexp.MustCompile(`(?i)\bclick\b.*\b(cli|command)\b|\bcli\b.*\bclick\b`)
	requestsRE   = regexp.MustCompile(`(?i)\brequests\b|\bhttp\s+request\b`)
)

// DetectFramework inspects a task's query text for a named Python
// framework or library and returns the oss_patterns store key it maps
// to, defaulting to "python-stdlib" when nothing is named.
func DetectFramework(query string) string {
	switch {
	case fastapiRE.MatchString(query):
		return "fastapi"
	case flaskRE.MatchString(query):
		return "flask"
	case djangoRE.MatchString(query):
		return "django"
	case pytestRE.MatchString(query):
		return "pytest"
	case sqlalchemyRE.MatchString(query):
		return "sqlalchemy"
	case pandasRE.MatchString(query):
		return "pandas"
	case clickRE.MatchString(query):
		return "click"
	case requestsRE.MatchString(query):
		return "requests"
	}
	return "python-stdlib"
}
