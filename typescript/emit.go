package typescript

import (
	"bytes"
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"github.com/broady/ocpgen/schema"
	"github.com/broady/ocpgen/sink"
)

// protocol is the per-protocol half of an emitter. The shared half lays out
// files, imports, the root client and the package support files.
type protocol interface {
	// writeEndpoint renders one class member. Module-level declarations the
	// member needs go to pre.
	writeEndpoint(pre, body *codeWriter, g *schema.Group, ep *schema.Endpoint, tm *TypeMapper, imp *imports) error

	// writeClient renders src/client.ts below the header.
	writeClient(w *codeWriter, m *schema.Model) error

	// summary describes how an endpoint is invoked, for the README.
	summary(ep *schema.Endpoint) string
}

// imports collects the names a group file takes from the client and types modules.
type imports struct {
	client []string
	types  []string
}

func (i *imports) useClient(names ...string) {
	for _, n := range names {
		if !slices.Contains(i.client, n) {
			i.client = append(i.client, n)
		}
	}
}

func (i *imports) useTypes(names ...string) {
	for _, n := range names {
		if !slices.Contains(i.types, n) {
			i.types = append(i.types, n)
		}
	}
}

// groupNames holds the generated names of one endpoint group.
type groupNames struct {
	class    string
	property string
	file     string
	module   string
}

func namesFor(g *schema.Group) groupNames {
	kebab := toKebabCase(g.Name)
	if kebab == "" {
		kebab = sanitizeIdentifier(g.Name)
	}
	return groupNames{
		class:    typeName(g.Name) + "Client",
		property: memberName(g.Name),
		file:     "src/groups/" + kebab + ".ts",
		module:   "./groups/" + kebab,
	}
}

// rootClientName is the class exported by src/index.ts.
func rootClientName(m *schema.Model) string {
	name := toPascalCase(m.Meta.Name)
	if name == "" {
		name = "Api"
	}
	return sanitizeIdentifier(name + "Client")
}

// checkNames rejects models whose groups or endpoints collapse onto the same
// generated names.
func checkNames(m *schema.Model) error {
	root := rootClientName(m)
	classes := map[string]string{root: "meta.name"}
	props := map[string]string{}
	files := map[string]string{}
	for _, g := range m.Groups {
		n := namesFor(g)
		for _, c := range []struct {
			seen  map[string]string
			value string
		}{{classes, n.class}, {props, n.property}, {files, n.file}} {
			if other, ok := c.seen[c.value]; ok {
				return generationErrorf(g.Name, "generated name %s collides with %s", c.value, other)
			}
			c.seen[c.value] = g.Name
		}

		methods := map[string]string{"constructor": "constructor"}
		for _, ep := range g.Endpoints {
			for _, name := range endpointMembers(m.Protocol, ep) {
				if other, ok := methods[name]; ok {
					return generationErrorf(g.Name+"."+ep.Name, "generated method %s collides with %s", name, other)
				}
				methods[name] = ep.Name
			}
		}
	}
	return nil
}

// endpointMembers lists the class members an endpoint generates.
func endpointMembers(kind schema.ProtocolKind, ep *schema.Endpoint) []string {
	if kind == schema.ProtocolWebSocket {
		p := typeName(ep.Name)
		return []string{"on" + p, "send" + p}
	}
	return []string{memberName(ep.Name)}
}

// checkAuth rejects auth schemes the base clients cannot implement.
func checkAuth(m *schema.Model) error {
	if m.Meta.Auth == nil {
		return nil
	}
	switch m.Meta.Auth.Type {
	case "bearer", "api_key", "basic":
		return nil
	}
	return generationErrorf("meta.auth", "unsupported auth type %q", m.Meta.Auth.Type)
}

// assemble renders the full artifact sequence: one file per group in model
// order, then the support files in a fixed order.
func assemble(cfg Config, m *schema.Model, tm *TypeMapper, p protocol) ([]sink.Artifact, error) {
	if err := checkAuth(m); err != nil {
		return nil, err
	}
	if err := checkNames(m); err != nil {
		return nil, err
	}

	var artifacts []sink.Artifact
	for _, g := range m.Groups {
		a, err := groupFile(cfg, g, tm, p)
		if err != nil {
			return nil, err
		}
		artifacts = append(artifacts, a)
	}

	types, err := typesFile(cfg, tm)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, types)

	cw := newCodeWriter(cfg)
	cw.header()
	if err := p.writeClient(cw, m); err != nil {
		return nil, err
	}
	artifacts = append(artifacts,
		sink.Artifact{Path: "src/client.ts", Content: cw.bytes()},
		indexFile(cfg, m),
	)

	pkg, err := packageFile(cfg, m)
	if err != nil {
		return nil, err
	}
	tsconfig, err := jsonFile(cfg, "tsconfig.json", defaultTSConfig)
	if err != nil {
		return nil, err
	}
	artifacts = append(artifacts, pkg, tsconfig)

	if cfg.EmitReadme {
		artifacts = append(artifacts, readmeFile(cfg, m, p))
	}
	return artifacts, nil
}

func groupFile(cfg Config, g *schema.Group, tm *TypeMapper, p protocol) (sink.Artifact, error) {
	names := namesFor(g)
	pre := newCodeWriter(cfg)
	body := newCodeWriter(cfg)
	imp := &imports{}
	imp.useClient("BaseClient")

	body.doc(g.Description, false)
	body.open("export class " + names.class + " {")
	body.line("readonly #client: BaseClient;")
	body.line("")
	body.open("constructor(client: BaseClient) {")
	body.line("this.#client = client;")
	body.close("}")
	for _, ep := range g.Endpoints {
		body.line("")
		if err := p.writeEndpoint(pre, body, g, ep, tm, imp); err != nil {
			return sink.Artifact{}, err
		}
	}
	body.close("}")

	out := newCodeWriter(cfg)
	out.header()
	out.line("import type { " + strings.Join(imp.client, ", ") + " } from " + out.str("../client") + ";")
	if len(imp.types) > 0 {
		types := slices.Clone(imp.types)
		slices.Sort(types)
		out.line("import type { " + strings.Join(types, ", ") + " } from " + out.str("../types") + ";")
	}
	out.line("")
	if pre.buf.Len() > 0 {
		out.buf.Write(pre.bytes())
		out.line("")
	}
	out.buf.Write(body.bytes())
	return sink.Artifact{Path: names.file, Content: out.bytes()}, nil
}

// typesFile renders src/types.ts: the registered named objects as interfaces,
// in registration order, each followed by its default factory.
func typesFile(cfg Config, tm *TypeMapper) (sink.Artifact, error) {
	w := newCodeWriter(cfg)
	w.header()
	defs := tm.Definitions()
	if len(defs) == 0 {
		w.line("export {};")
	}
	for i, def := range defs {
		if i > 0 {
			w.line("")
		}
		name := typeName(def.Name)
		loc := "types." + def.Name

		w.doc(def.Description, false)
		w.open("export interface " + name + " {")
		for _, p := range def.Properties {
			pe, err := tm.MapType(p.Type, Context{Location: loc + "." + p.Name})
			if err != nil {
				return sink.Artifact{}, err
			}
			w.doc(p.Type.Description, false)
			w.line(tm.PropertyKey(p.Name) + optionalMark(p.Required) + ": " + pe.Text + ";")
		}
		w.close("}")

		if !cfg.EmitFactories {
			continue
		}
		if err := tm.checkFiniteDefault(def); err != nil {
			return sink.Artifact{}, err
		}
		value, err := tm.objectDefault(def, []string{def.Name})
		if err != nil {
			return sink.Artifact{}, err
		}
		w.line("")
		w.open("export function default" + name + "(): " + name + " {")
		w.line("return " + value + ";")
		w.close("}")
	}
	return sink.Artifact{Path: "src/types.ts", Content: w.bytes()}, nil
}

// checkFiniteDefault reports a named object whose required properties lead
// back to itself, which no factory could construct.
func (tm *TypeMapper) checkFiniteDefault(def *schema.FieldType) error {
	saved := tm.emitFactories
	tm.emitFactories = false
	defer func() { tm.emitFactories = saved }()
	_, err := tm.objectDefault(def, []string{def.Name})
	if err != nil {
		return generationErrorf("types."+def.Name, "%s", err.Error())
	}
	return nil
}

func indexFile(cfg Config, m *schema.Model) sink.Artifact {
	w := newCodeWriter(cfg)
	w.header()
	w.line("import { BaseClient, type ClientConfig } from " + w.str("./client") + ";")
	for _, g := range m.Groups {
		n := namesFor(g)
		w.line("import { " + n.class + " } from " + w.str(n.module) + ";")
	}
	w.line("")
	w.line("export * from " + w.str("./client") + ";")
	w.line("export * from " + w.str("./types") + ";")
	for _, g := range m.Groups {
		n := namesFor(g)
		w.line("export { " + n.class + " } from " + w.str(n.module) + ";")
	}
	w.line("")

	root := rootClientName(m)
	w.doc(m.Meta.Description, false)
	w.open("export class " + root + " {")
	for _, g := range m.Groups {
		n := namesFor(g)
		w.line("readonly " + n.property + ": " + n.class + ";")
	}
	if len(m.Groups) > 0 {
		w.line("")
	}
	w.open("constructor(config: ClientConfig = {}) {")
	if len(m.Groups) == 0 {
		w.line("void new BaseClient(config);")
	} else {
		w.line("const client = new BaseClient(config);")
	}
	for _, g := range m.Groups {
		n := namesFor(g)
		w.line("this." + n.property + " = new " + n.class + "(client);")
	}
	w.close("}")
	w.close("}")
	w.line("")
	w.line("export default " + root + ";")
	return sink.Artifact{Path: "src/index.ts", Content: w.bytes()}
}

type packageManifest struct {
	Name            string            `json:"name"`
	Version         string            `json:"version"`
	Description     string            `json:"description,omitempty"`
	Main            string            `json:"main"`
	Types           string            `json:"types"`
	Files           []string          `json:"files"`
	Scripts         map[string]string `json:"scripts"`
	DevDependencies map[string]string `json:"devDependencies"`
}

func packageName(cfg Config, m *schema.Model) string {
	if cfg.PackageName != "" {
		return cfg.PackageName
	}
	if name := toKebabCase(m.Meta.Name); name != "" {
		return name
	}
	return "ocp-client"
}

func packageFile(cfg Config, m *schema.Model) (sink.Artifact, error) {
	version := m.Meta.Version
	if version == "" {
		version = "0.1.0"
	}
	return jsonFile(cfg, "package.json", packageManifest{
		Name:            packageName(cfg, m),
		Version:         version,
		Description:     strings.Join(docLines(m.Meta.Description), " "),
		Main:            "dist/index.js",
		Types:           "dist/index.d.ts",
		Files:           []string{"dist"},
		Scripts:         map[string]string{"build": "tsc -p tsconfig.json"},
		DevDependencies: map[string]string{"typescript": "^5.4.0"},
	})
}

type tsConfig struct {
	CompilerOptions tsCompilerOptions `json:"compilerOptions"`
	Include         []string          `json:"include"`
}

type tsCompilerOptions struct {
	Target           string   `json:"target"`
	Module           string   `json:"module"`
	ModuleResolution string   `json:"moduleResolution"`
	Lib              []string `json:"lib"`
	Declaration      bool     `json:"declaration"`
	OutDir           string   `json:"outDir"`
	Strict           bool     `json:"strict"`
}

var defaultTSConfig = tsConfig{
	CompilerOptions: tsCompilerOptions{
		Target:           "ES2020",
		Module:           "ES2020",
		ModuleResolution: "node",
		Lib:              []string{"ES2020", "DOM"},
		Declaration:      true,
		OutDir:           "dist",
		Strict:           true,
	},
	Include: []string{"src"},
}

func jsonFile(cfg Config, path string, v any) (sink.Artifact, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", cfg.indent())
	if err := enc.Encode(v); err != nil {
		return sink.Artifact{}, fmt.Errorf("encode %s: %w", path, err)
	}
	return sink.Artifact{Path: path, Content: buf.Bytes()}, nil
}

func readmeFile(cfg Config, m *schema.Model, p protocol) sink.Artifact {
	pkg := packageName(cfg, m)
	root := rootClientName(m)

	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", m.Meta.Name)
	if desc := docLines(m.Meta.Description); len(desc) > 0 {
		b.WriteString(strings.Join(desc, "\n"))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Generated by ocpgen from an OCP %s schema (version %s).\n\n", m.Protocol, m.Version)
	b.WriteString("## Install\n\n")
	fmt.Fprintf(&b, "```sh\nnpm install %s\n```\n\n", pkg)
	b.WriteString("## Usage\n\n")
	fmt.Fprintf(&b, "```ts\nimport { %s } from %s;\n\nconst client = new %s({ baseUrl: %s });\n```\n",
		root, quoteString(pkg, cfg.quoteChar()), root, quoteString(m.Meta.BaseURL, cfg.quoteChar()))

	for _, g := range m.Groups {
		n := namesFor(g)
		fmt.Fprintf(&b, "\n## %s\n\n", g.Name)
		if desc := docLines(g.Description); len(desc) > 0 {
			b.WriteString(strings.Join(desc, " "))
			b.WriteString("\n\n")
		}
		if len(g.Endpoints) == 0 {
			b.WriteString("No endpoints.\n")
			continue
		}
		b.WriteString("| Call | Endpoint | Description |\n")
		b.WriteString("|------|----------|-------------|\n")
		for _, ep := range g.Endpoints {
			desc := strings.Join(docLines(ep.Description), " ")
			if ep.Deprecated {
				desc = strings.TrimSpace("**Deprecated.** " + desc)
			}
			fmt.Fprintf(&b, "| `client.%s.%s` | `%s` | %s |\n",
				n.property, strings.Join(endpointMembers(m.Protocol, ep), "`, `client."+n.property+"."),
				p.summary(ep), strings.ReplaceAll(desc, "|", `\|`))
		}
	}
	return sink.Artifact{Path: "README.md", Content: []byte(b.String())}
}
