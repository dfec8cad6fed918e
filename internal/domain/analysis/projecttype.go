package analysis

import "strings"

// frameworkClass buckets a dependency name into a detection category.
type frameworkClass int

const (
	classNone frameworkClass = iota
	classBackendWeb
	classFrontendWeb
	classCLI
)

// backendWebFrameworks are dependencies whose presence marks an api project.
// Matched against lower-cased dependency names.
var backendWebFrameworks = map[string]string{
	"fastapi":                        "FastAPI",
	"flask":                          "Flask",
	"django":                         "Django",
	"express":                        "Express",
	"fastify":                        "Fastify",
	"koa":                            "Koa",
	"@nestjs/core":                   "NestJS",
	"spring-boot-starter-web":        "Spring Boot",
	"spring-boot":                    "Spring Boot",
	"actix-web":                      "Actix",
	"axum":                           "Axum",
	"rocket":                         "Rocket",
	"github.com/go-chi/chi/v5":       "chi",
	"github.com/gin-gonic/gin":       "Gin",
	"github.com/labstack/echo/v4":    "Echo",
	"github.com/gofiber/fiber/v2":    "Fiber",
	"microsoft.aspnetcore.app":       "ASP.NET Core",
	"microsoft.aspnetcore.mvc":       "ASP.NET Core",
	"swashbuckle.aspnetcore":         "ASP.NET Core",
	"grpcio":                         "gRPC",
	"google.golang.org/grpc":         "gRPC",
}

// frontendWebFrameworks mark a web-app project.
var frontendWebFrameworks = map[string]string{
	"react":         "React",
	"react-dom":     "React",
	"vue":           "Vue",
	"svelte":        "Svelte",
	"solid-js":      "Solid",
	"next":          "Next.js",
	"nuxt":          "Nuxt",
	"@angular/core": "Angular",
}

// cliFrameworks mark a cli project when no web framework is present.
var cliFrameworks = map[string]string{
	"click":                       "Click",
	"typer":                       "Typer",
	"argparse":                    "argparse",
	"commander":                   "Commander",
	"yargs":                       "yargs",
	"clap":                        "clap",
	"structopt":                   "StructOpt",
	"github.com/spf13/cobra":      "Cobra",
	"github.com/urfave/cli/v2":    "urfave/cli",
	"picocli":                     "picocli",
	"system.commandline":          "System.CommandLine",
}

// libraryManifests are manifest kinds whose presence suggests a library when
// nothing stronger matches.
var libraryManifests = map[ManifestKind]bool{
	ManifestSetupPy:   true,
	ManifestPyProject: true,
	ManifestCargo:     true,
	ManifestPomXML:    true,
	ManifestCMake:     true,
}

// classify returns the strongest class a single dependency belongs to.
func classify(dep string) (frameworkClass, string) {
	name := strings.ToLower(strings.TrimSpace(dep))
	if fw, ok := backendWebFrameworks[name]; ok {
		return classBackendWeb, fw
	}
	if fw, ok := frontendWebFrameworks[name]; ok {
		return classFrontendWeb, fw
	}
	if fw, ok := cliFrameworks[name]; ok {
		return classCLI, fw
	}
	return classNone, ""
}

// InferProjectType applies the priority-ordered rule set:
// backend web framework → api; frontend framework → web-app; either of those
// with container packaging → microservice; CLI-argument-parsing dependency
// and no web framework → cli; library-shaped manifest → library; else
// unknown. A more specific framework marker (backend) overrides a generic
// one (frontend) when both appear.
func InferProjectType(deps []DependencyDeclaration, manifest ManifestKind, containerized bool) ProjectType {
	var backend, frontend, cli bool
	for _, d := range deps {
		switch c, _ := classify(d.Name); c {
		case classBackendWeb:
			backend = true
		case classFrontendWeb:
			frontend = true
		case classCLI:
			cli = true
		}
	}

	switch {
	case (backend || frontend) && containerized:
		return TypeMicroservice
	case backend:
		return TypeAPI
	case frontend:
		return TypeWebApp
	case cli:
		return TypeCLI
	case libraryManifests[manifest]:
		return TypeLibrary
	default:
		return TypeUnknown
	}
}

// FrameworkHint returns the framework name for a dependency, or "" when the
// dependency is not a recognized framework. Analyzers use it to annotate
// route entry points.
func FrameworkHint(dep string) string {
	_, fw := classify(dep)
	return fw
}
