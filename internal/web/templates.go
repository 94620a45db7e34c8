package web

import "net/http"

func handleCSS(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/css; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(appCSS))
}

const pageHTML = `<!doctype html>
<html lang="en">
  <head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>TaskMaster</title>
    <link rel="stylesheet" href="/static/app.css" />
  </head>
  <body>
    <main class="container">
    {{if .SignedOut}}
      <section class="panel signedOut">
        <h1 class="title">Signed out</h1>
        <p class="subtitle">Run <span class="mono">taskmaster login</span> and restart the server to sign in again.</p>
      </section>
    {{else}}
      <header class="header">
        <h1 class="title">TaskMaster</h1>
        <div class="identity">
          <span class="subtitle">Welcome, {{.UserName}}</span>
          <form method="post" action="/signout"><button class="link" type="submit">Sign Out</button></form>
        </div>
      </header>

      {{if .Confirm}}
      <section class="panel confirm">
        <p>{{.Confirm.Prompt}}</p>
        <p class="mono">{{.Confirm.Title}}</p>
        <form method="post" action="/tasks/{{.Confirm.ID}}/delete" class="actions">
          <button class="danger" type="submit" name="confirm" value="yes">Delete</button>
          <button type="submit" name="confirm" value="no">Keep</button>
        </form>
      </section>
      {{end}}

      {{if .Screen.Loading}}
      <div class="empty">Loading...</div>
      {{else}}
      <nav class="tabs">
        <a class="tab{{if eq .Screen.Active .TabPending}} active{{end}}" href="/?tab={{.TabPending}}">{{.Screen.PendingLabel}}</a>
        <a class="tab{{if eq .Screen.Active .TabDone}} active{{end}}" href="/?tab={{.TabDone}}">{{.Screen.CompletedLabel}}</a>
      </nav>

      {{if .Screen.ShowForm}}
      <section class="panel entry">
        <form method="post" action="/tasks">
          <input class="input" type="text" name="title" value="{{.Form.Title}}" placeholder="What needs to be done?" />
          {{if .Form.Expanded}}
          <textarea class="input" name="description" rows="3" placeholder="Add a description (optional)">{{.Form.Description}}</textarea>
          <select class="input" name="priority">
            {{range .Priorities}}
            <option value="{{.}}"{{if eq . $.Form.Priority}} selected{{end}}>{{.Label}} Priority</option>
            {{end}}
          </select>
          <div class="actions">
            <button type="submit">Add Task</button>
            <button type="submit" formaction="/form/cancel">Cancel</button>
          </div>
          {{else}}
          <div class="actions">
            <button type="submit">Add Task</button>
            <button type="submit" formaction="/form/expand">More</button>
          </div>
          {{end}}
        </form>
      </section>
      {{end}}

      <section class="panel">
        {{if .Rows}}
        <ul class="list">
          {{range .Rows}}
          <li class="row">
            {{if .Editing}}
            <form method="post" action="/tasks/{{.ID}}/save" class="rowMain">
              <input class="input" type="text" name="title" value="{{.Draft.Title}}" />
              <textarea class="input" name="description" rows="3">{{.Draft.Description}}</textarea>
              <select class="input" name="priority">
                {{$draft := .Draft.Priority}}
                {{range $.Priorities}}
                <option value="{{.}}"{{if eq . $draft}} selected{{end}}>{{.Label}} Priority</option>
                {{end}}
              </select>
              <div class="actions">
                <button type="submit">Save</button>
                <button type="submit" formaction="/tasks/{{.ID}}/cancel">Cancel</button>
              </div>
            </form>
            {{else}}
            <div class="rowMain">
              <form method="post" action="/tasks/{{.ID}}/toggle" class="check">
                <input type="hidden" name="completed" value="{{if .Completed}}false{{else}}true{{end}}" />
                <button class="box" type="submit">{{if .Completed}}&#10003;{{else}}&nbsp;{{end}}</button>
              </form>
              <div class="rowBody">
                <div class="rowName{{if .Completed}} done{{end}}">{{.Title}}</div>
                {{if .Description}}<div class="rowDesc">{{.Description}}</div>{{end}}
                <div class="rowMeta">
                  <span class="badge {{.Priority}}">{{.Badge}}</span>
                  <span class="mono">{{.Date}}</span>
                </div>
              </div>
              <div class="actions">
                <form method="post" action="/tasks/{{.ID}}/edit"><button type="submit">Edit</button></form>
                <a class="button danger" href="/tasks/{{.ID}}/delete">Delete</a>
              </div>
            </div>
            {{end}}
          </li>
          {{end}}
        </ul>
        {{else}}
        <div class="empty">{{.Screen.Placeholder}}</div>
        {{end}}
      </section>
      {{end}}
    {{end}}
    </main>
  </body>
</html>
`

const appCSS = `
:root{
  --bg: #f4f5f7;
  --panel: #ffffff;
  --text: #1f2330;
  --muted: #6b7280;
  --line: #e5e7eb;
  --accent: #2563eb;
  --danger: #dc2626;
  --low: #d1fae5;
  --medium: #fef3c7;
  --high: #fee2e2;
  --mono: ui-monospace, SFMono-Regular, Menlo, Monaco, Consolas, "Liberation Mono", monospace;
  --sans: ui-sans-serif, system-ui, -apple-system, Segoe UI, Roboto, Helvetica, Arial;
}
*{box-sizing:border-box}
body{margin:0; font-family:var(--sans); background:var(--bg); color:var(--text)}
.container{max-width:760px; margin:0 auto; padding:32px 20px 60px}
.header{display:flex; justify-content:space-between; align-items:baseline; margin-bottom:18px}
.title{margin:0; font-size:26px}
.identity{display:flex; gap:12px; align-items:baseline}
.subtitle{color:var(--muted); font-size:14px}
.panel{background:var(--panel); border:1px solid var(--line); border-radius:10px; margin-bottom:16px; overflow:hidden}
.entry form, .confirm{padding:14px 16px}
.input{display:block; width:100%; margin-bottom:8px; padding:8px 10px; border:1px solid var(--line); border-radius:6px; font:inherit}
.actions{display:flex; gap:8px; align-items:center}
button, .button{padding:6px 12px; border:1px solid var(--line); border-radius:6px; background:var(--panel); font:inherit; color:inherit; text-decoration:none; cursor:pointer}
button[type=submit]:first-child{border-color:var(--accent)}
.danger{color:var(--danger)}
.link{border:none; background:none; color:var(--accent); padding:0}
.tabs{display:flex; gap:4px; margin-bottom:12px}
.tab{padding:8px 14px; border-radius:6px; color:var(--muted); text-decoration:none}
.tab.active{background:var(--panel); color:var(--text); border:1px solid var(--line)}
.list{list-style:none; margin:0; padding:0}
.row{border-bottom:1px solid var(--line)}
.row:last-child{border-bottom:none}
.rowMain{display:flex; gap:12px; padding:14px 16px; align-items:flex-start}
form.rowMain{display:block}
.rowBody{flex:1}
.rowName{font-size:16px; margin-bottom:4px}
.rowName.done{text-decoration:line-through; color:var(--muted)}
.rowDesc{color:var(--muted); font-size:14px; margin-bottom:6px; white-space:pre-wrap}
.rowMeta{display:flex; gap:10px; align-items:center; color:var(--muted); font-size:12px}
.box{width:22px; height:22px; padding:0; line-height:20px; text-align:center}
.badge{display:inline-block; padding:2px 8px; border-radius:999px; font-size:12px}
.badge.low{background:var(--low)}
.badge.medium{background:var(--medium)}
.badge.high{background:var(--high)}
.mono{font-family:var(--mono)}
.empty{padding:18px 16px; color:var(--muted)}
`
