package stage

// Name is a strongly-typed identifier for a build stage.
type Name string

// Canonical stage names, in pipeline order.
const (
	EnvironmentCheck    Name = "environment_check"
	PrepareRepository   Name = "prepare_repository"
	CleanArtifacts      Name = "clean_artifacts"
	BuildCore           Name = "build_core"
	RunTests            Name = "run_tests"
	BuildFrontend       Name = "build_frontend"
	BuildDesktop        Name = "build_desktop"
	PackageDistribution Name = "package_distribution"
	Finalize            Name = "finalize"
)

var titles = map[Name]string{
	EnvironmentCheck:    "Environment Check",
	PrepareRepository:   "Repository Preparation",
	CleanArtifacts:      "Clean Build Artifacts",
	BuildCore:           "Build Core",
	RunTests:            "Run Tests",
	BuildFrontend:       "Build Frontend",
	BuildDesktop:        "Build Desktop Application",
	PackageDistribution: "Package Distribution",
	Finalize:            "Finalization",
}

// Title returns the human-readable stage title, falling back to the raw name.
func (n Name) Title() string {
	if t, ok := titles[n]; ok {
		return t
	}
	return string(n)
}
