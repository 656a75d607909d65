package scaffold

// FileTemplate is one generated file. Content is a text/template executed
// with a Context.
type FileTemplate struct {
	Path    string // relative to the source root unless Root is set
	Root    bool   // Path is relative to the project root
	Content string
}

// Context is the data available to file templates.
type Context struct {
	Name    string
	Version string
	License string
	Entry   string
}

// projectTemplates is the sample project written by init.
var projectTemplates = []FileTemplate{
	{
		Path: "package.json",
		Root: true,
		Content: `{
  "name": "{{.Name}}",
  "version": "{{.Version}}",
  "license": "{{.License}}",
  "private": true
}
`,
	},
	{
		Path: "{{.Entry}}.pug",
		Content: `!!! 5
html[lang="en"]
	head
		meta[charset="utf-8"]
		title {{.Name}}
		link[rel="stylesheet"][href="/style.min.css"]
	body
		h1 {{.Name}}
		img[src="/assets/images/logo.svg"][alt="logo"]
		p Version #{version}, released under #{license}.
		a[href="/pages/about.html"] About
		script[src="/{{.Entry}}.min.js"]
`,
	},
	{
		Path: "pages/about.pug",
		Content: `!!! 5
html[lang="en"]
	head
		meta[charset="utf-8"]
		title About {{.Name}}
		link[rel="stylesheet"][href="/style.min.css"]
	body
		h1 About
		img[src="/assets/images/logo.svg"][alt="logo"]
		a[href="/{{.Entry}}.html"] Home
`,
	},
	{
		Path: "{{.Entry}}.scss",
		Content: `@import "variables";

body {
  font-family: $font-stack;
  color: $text-color;

  h1 {
    color: $brand-color;
  }
}
`,
	},
	{
		Path: "styles/_variables.scss",
		Content: `$font-stack: system-ui, sans-serif;
$text-color: #222;
$brand-color: #0b7285;
`,
	},
	{
		Path: "{{.Entry}}.js",
		Content: `import { greet } from "./scripts/greet.js";

greet(process.env.NODE_ENV);
`,
	},
	{
		Path: "scripts/greet.js",
		Content: `export function greet(mode) {
  console.log("{{.Name}} running in " + mode + " mode");
}
`,
	},
	{
		Path: "assets/images/logo.svg",
		Content: `<svg xmlns="http://www.w3.org/2000/svg" width="64" height="64" viewBox="0 0 64 64"><circle cx="32" cy="32" r="28" fill="#0b7285"/></svg>
`,
	},
	{
		Path: "static/robots.txt",
		Content: `User-agent: *
Allow: /
`,
	},
}
