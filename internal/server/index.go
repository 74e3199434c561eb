package server

import "net/http"

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)

		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write([]byte(indexHTML))
}

// indexHTML is the built-in demo page. It is intentionally dependency
// free: one websocket, wheel events out, render frames in.
const indexHTML = `<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>vlist demo</title>
<style>
  body { font: 14px/1.4 -apple-system, sans-serif; margin: 0; background: #111; color: #ddd; }
  #bar { padding: 8px 12px; background: #1a1a1a; border-bottom: 1px solid #333; }
  #wrap { position: relative; height: calc(100vh - 40px); overflow: hidden; }
  #list { position: absolute; left: 0; right: 14px; will-change: transform; }
  .row { height: 40px; padding: 0 12px; display: flex; align-items: center; gap: 12px;
         border-bottom: 1px solid #222; white-space: nowrap; overflow: hidden; }
  .row.placeholder { color: #555; }
  .row.errored { color: #c66; }
  #track { position: absolute; top: 0; right: 0; width: 12px; bottom: 0; background: #1a1a1a; }
  #thumb { position: absolute; right: 1px; width: 10px; border-radius: 5px; background: #555; }
</style>
</head>
<body>
<div id="bar">vlist &mdash; <span id="state">connecting</span></div>
<div id="wrap">
  <div id="list"></div>
  <div id="track"><div id="thumb"></div></div>
</div>
<script>
const ws = new WebSocket((location.protocol === "https:" ? "wss://" : "ws://") + location.host + "/ws");
const list = document.getElementById("list");
const thumb = document.getElementById("thumb");
const state = document.getElementById("state");

ws.onopen = () => { state.textContent = "idle"; };
ws.onclose = () => { state.textContent = "disconnected"; };

ws.onmessage = (msg) => {
  const ev = JSON.parse(msg.data);
  switch (ev.kind) {
  case "render:transform":
    list.style.transform = "translateY(" + ev.payload.translate + "px)";
    break;
  case "render:scrollbar":
    thumb.style.top = ev.payload.thumbPos + "px";
    thumb.style.height = ev.payload.thumbSize + "px";
    break;
  case "render:range":
    list.replaceChildren(...ev.payload.rows.map(rowEl));
    break;
  case "speed:changed":
    state.textContent = ev.payload.state;
    break;
  }
};

function rowEl(row) {
  const el = document.createElement("div");
  el.className = "row" + (row.errored ? " errored" : row.placeholder ? " placeholder" : "");
  const item = row.item || {};
  el.textContent = "#" + row.index + "  " +
    (row.errored ? "load failed" : [item.name, item.email, item.city].filter(Boolean).join("  "));
  return el;
}

setInterval(() => {
  if (ws.readyState === WebSocket.OPEN) {
    ws.send(JSON.stringify({action: "settle"}));
  }
}, 100);

document.getElementById("wrap").addEventListener("wheel", (e) => {
  e.preventDefault();
  ws.send(JSON.stringify({action: "scroll", delta: e.deltaY}));
}, {passive: false});
</script>
</body>
</html>
`
