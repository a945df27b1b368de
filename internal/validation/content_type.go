package validation

import "regexp"

// Content-type signatures, checked in priority order. Helm templates are
// YAML-shaped Kubernetes manifests decorated with Go template actions, so
// the Helm check must run before the Kubernetes check or every Helm
// template would be misclassified as a plain manifest.
var (
	helmRE           = regexp.MustCompile(`\{\{[-\s]*[.\w]+.*?\}\}`)
	kubernetesAPIRE  = regexp.MustCompile(`(?m)^\s*apiVersion\s*:\s*\S+`)
	kubernetesKindRE = regexp.MustCompile(`(?m)^\s*kind\s*:\s*\S+`)
	githubOnRE       = regexp.MustCompile(`(?m)^\s*on\s*:`)
	githubJobsRE     = regexp.MustCompile(`(?m)^\s*jobs\s*:`)
	dockerComposeRE  = regexp.MustCompile(`(?m)^\s*services\s*:`)
	composeImageRE   = regexp.MustCompile(`(?m)^\s*(image|build)\s*:`)
	ansibleHostsRE   = regexp.MustCompile(`(?m)^\s*hosts\s*:`)
	ansibleTasksRE   = regexp.MustCompile(`(?m)^\s*tasks\s*:`)
	terraformRE      = regexp.MustCompile(`(?m)^\s*(resource|provider|variable|module)\s+"[^"]+"\s*(\{|")`)
	dockerfileFromRE = regexp.MustCompile(`(?mi)^\s*FROM\s+\S+`)
	dockerfileStepRE = regexp.MustCompile(`(?mi)^\s*(RUN|CMD|ENTRYPOINT|COPY|ADD|EXPOSE|WORKDIR)\s+`)
	bashShebangRE    = regexp.MustCompile(`^#!\s*/(usr/bin/env\s+)?(bash|sh)\b`)
	genericYAMLRE    = regexp.MustCompile(`(?m)^[\w\-]+\s*:\s*\S`)
	pythonRE         = regexp.MustCompile(`(?m)^\s*(def\s+\w+\s*\(|import\s+\w+|from\s+\w+(\.\w+)*\s+import\s)`)
)

// DetectContentType inspects generated code for structural signatures and
// returns the content type DevOps rule dispatch understands: "python",
// "kubernetes", "helm", "github_actions", "docker_compose", "ansible",
// "terraform", "dockerfile", "bash", "yaml", defaulting to "python" when
// nothing else matches (the DevOps rule sets never apply to content we
// can't positively identify as non-Python).
func DetectContentType(code string) string {
	isKubernetesManifest := kubernetesAPIRE.MatchString(code) && kubernetesKindRE.MatchString(code)

	switch {
	case helmRE.MatchString(code) && isKubernetesManifest:
		return "helm"
	case dockerfileFromRE.MatchString(code) && dockerfileStepRE.MatchString(code):
		return "dockerfile"
	case dockerComposeRE.MatchString(code) && composeImageRE.MatchString(code):
		return "docker_compose"
	case githubOnRE.MatchString(code) && githubJobsRE.MatchString(code):
		return "github_actions"
	case isKubernetesManifest:
		return "kubernetes"
	case ansibleHostsRE.MatchString(code) && ansibleTasksRE.MatchString(code):
		return "ansible"
	case terraformRE.MatchString(code):
		return "terraform"
	case bashShebangRE.MatchString(code):
		return "bash"
	case pythonRE.MatchString(code):
		return "python"
	case genericYAMLRE.MatchString(code):
		return "yaml"
	}
	return "python"
}
