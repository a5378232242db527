package static

import _ "embed"

// IndexTemplate is the html/template source of the widget page.
//
//go:embed index.html.tmpl
var IndexTemplate string

// StyleCSS is the widget stylesheet served at /static/style.css.
//
//go:embed style.css
var StyleCSS string
