package fixture

import "html/template"

const layoutHTML = `{{define "layout"}}<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}} | School Admin</title>
<style>
body { font-family: sans-serif; margin: 0; }
nav { background: #1f2937; padding: 12px 24px; }
nav a { color: #fff; margin-right: 16px; text-decoration: none; }
main { padding: 24px; }
.stats { display: flex; gap: 16px; }
.stat-card { border: 1px solid #ddd; border-radius: 8px; padding: 16px; min-width: 140px; }
.stat-value { font-size: 28px; font-weight: bold; }
.data-table { border-collapse: collapse; width: 100%; margin-top: 16px; }
.data-table td, .data-table th { border: 1px solid #ddd; padding: 8px; }
.meal-banner { display: flex; border: 1px solid #ddd; border-radius: 8px; padding: 16px; }
.meal-left { width: 60%; }
.meal-right { width: 40%; }
.meal-right img { width: 100%; height: 160px; background: #eee; }
.error { color: #b91c1c; }
</style>
</head>
<body>
{{if .Nav}}<nav>
<a href="/dashboard">Dashboard</a>
<a href="/management">Management</a>
<a href="/feeding">Feeding &amp; Nutrition</a>
<a href="/reports">Reports</a>
</nav>{{end}}
<main>
<h1>{{.Title}}</h1>
{{template "content" .}}
</main>
</body>
</html>{{end}}`

const loginHTML = `{{define "content"}}
<form class="login-form" method="post" action="/login">
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<input type="email" name="email" placeholder="E-mail" autocomplete="username">
<input type="password" name="password" placeholder="Password" autocomplete="current-password">
<button type="submit">Login</button>
</form>
{{end}}`

const dashboardHTML = `{{define "content"}}
<div class="stats">
{{range .Stats}}<div class="stat-card"><div class="stat-label">{{.Label}}</div><div class="stat-value">{{.Value}}</div></div>
{{end}}</div>
{{end}}`

const tableHTML = `{{define "table"}}
<table class="data-table">
<thead><tr>{{range .Columns}}<th>{{.}}</th>{{end}}</tr></thead>
<tbody>
{{range .Rows}}<tr>{{range .}}<td>{{.}}</td>{{end}}</tr>
{{end}}</tbody>
</table>
{{end}}`

const rowsHTML = `{{define "content"}}{{template "table" .}}{{end}}`

const feedingHTML = `{{define "content"}}
<div class="meal-banner">
{{if .Meal}}<div class="meal-left">{{else}}<div class="meal-left" style="text-align: center; width: 100%;">{{end}}
<p class="meal-meta">{{.MealType}} • {{.Date}}</p>
<h3 class="meal-name">{{if .Meal}}{{.Meal}}{{else}}{{.Fallback}}{{end}}</h3>
</div>
{{if .Meal}}<div class="meal-right"><img alt="{{.Meal}}" src="data:image/gif;base64,R0lGODlhAQABAAAAACw="></div>{{end}}
</div>
{{template "table" .}}
{{end}}`

func mustPage(content string) *template.Template {
	t := template.Must(template.New("layout").Parse(layoutHTML))
	template.Must(t.Parse(tableHTML))
	return template.Must(t.Parse(content))
}

var pages = map[string]*template.Template{
	"login":     mustPage(loginHTML),
	"dashboard": mustPage(dashboardHTML),
	"rows":      mustPage(rowsHTML),
	"feeding":   mustPage(feedingHTML),
}
