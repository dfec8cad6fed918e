package analyzer_test

import (
	"testing"

	"github.com/repolens/repolens/internal/analyzer"
	"github.com/repolens/repolens/internal/domain/analysis"
)

func TestJavaScriptExpressRoutes(t *testing.T) {
	src := []byte(`const express = require('express');
const app = express();

app.get('/users', (req, res) => res.json([]));
app.post('/users', createUser);

function createUser(req, res) {}

class UserStore {
  find(id) {}
}
`)
	a := analyzer.NewJavaScript()
	eps, err := a.ParseEntryPoints("server.js", src)
	if err != nil {
		t.Fatal(err)
	}

	get := findEntryPoint(eps, "GET /users")
	if get == nil || get.Kind != analysis.KindRoute || get.Framework != "Express" {
		t.Errorf("expected Express GET route, got %+v", eps)
	}
	if findEntryPoint(eps, "POST /users") == nil {
		t.Errorf("expected POST route, got %+v", eps)
	}
	if ep := findEntryPoint(eps, "createUser"); ep == nil || ep.Kind != analysis.KindFunction {
		t.Errorf("expected createUser function, got %+v", eps)
	}
	if ep := findEntryPoint(eps, "UserStore"); ep == nil || ep.Kind != analysis.KindClass {
		t.Errorf("expected UserStore class, got %+v", eps)
	}
	if ep := findEntryPoint(eps, "UserStore.find"); ep == nil || ep.Kind != analysis.KindMethod {
		t.Errorf("expected UserStore.find method, got %+v", eps)
	}
}

func TestTypeScriptEntryPoints(t *testing.T) {
	src := []byte(`export function bootstrap(): void {}

class ApiClient {
  constructor(private base: string) {}
  fetchAll(): Promise<void> { return Promise.resolve(); }
}
`)
	a := analyzer.NewTypeScript()
	eps, err := a.ParseEntryPoints("client.ts", src)
	if err != nil {
		t.Fatal(err)
	}
	if findEntryPoint(eps, "bootstrap") == nil {
		t.Errorf("expected bootstrap function, got %+v", eps)
	}
	if findEntryPoint(eps, "ApiClient.fetchAll") == nil {
		t.Errorf("expected fetchAll method, got %+v", eps)
	}
	if findEntryPoint(eps, "ApiClient.constructor") != nil {
		t.Error("constructor should not be an entry point")
	}
}

func TestTSXEntryPoints(t *testing.T) {
	src := []byte(`export function App(): JSX.Element {
  return <div className="app">hello</div>;
}

class Panel {
  render() {
    return <section />;
  }
}
`)
	a := analyzer.NewTypeScript()
	eps, err := a.ParseEntryPoints("App.tsx", src)
	if err != nil {
		t.Fatal(err)
	}
	if ep := findEntryPoint(eps, "App"); ep == nil || ep.Kind != analysis.KindFunction {
		t.Errorf("expected App function despite JSX body, got %+v", eps)
	}
	if findEntryPoint(eps, "Panel.render") == nil {
		t.Errorf("expected Panel.render method, got %+v", eps)
	}
}

func TestParsePackageJSON(t *testing.T) {
	content := []byte(`{
  "name": "dashboard",
  "dependencies": {
    "express": "^4.18.2",
    "react": "18.2.0"
  },
  "devDependencies": {
    "vitest": "~1.2.0"
  }
}`)
	a := analyzer.NewJavaScript()
	deps, err := a.ParseManifest(analysis.ManifestPackageJSON, content)
	if err != nil {
		t.Fatal(err)
	}
	if len(deps) != 3 {
		t.Fatalf("expected 3 deps, got %+v", deps)
	}
	express := findDep(deps, "express")
	if express == nil || express.Version != "4.18.2" {
		t.Errorf("express dep = %+v", express)
	}
	if findDep(deps, "vitest") == nil {
		t.Error("devDependencies should be included")
	}
}

func TestParsePackageJSONInvalid(t *testing.T) {
	a := analyzer.NewJavaScript()
	if _, err := a.ParseManifest(analysis.ManifestPackageJSON, []byte("{broken")); err == nil {
		t.Fatal("expected error for invalid JSON")
	}
}
