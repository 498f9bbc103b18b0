package server

import (
	"html/template"
	"net/http"

	"go.uber.org/zap"
)

var uiTemplate = template.Must(template.New("ui").Parse(uiHTML))

type uiData struct {
	PhotosDir string
}

func (s *Server) handleUI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := uiTemplate.Execute(w, uiData{PhotosDir: s.config.Photos.Dir}); err != nil {
		s.logger.Error("ui render failed", zap.Error(err))
	}
}

const uiHTML = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>SmartLens</title>
<style>
  body { font-family: -apple-system, "Segoe UI", Roboto, sans-serif; margin: 0; background: #fafafa; color: #222; }
  header { background: #1f2937; color: #fff; padding: 1rem 2rem; display: flex; align-items: baseline; gap: 1rem; }
  header h1 { margin: 0; font-size: 1.3rem; }
  header span { color: #9ca3af; font-size: 0.85rem; }
  main { max-width: 960px; margin: 0 auto; padding: 1.5rem; }
  .searchbar { display: flex; gap: 0.5rem; }
  .searchbar input { flex: 1; padding: 0.6rem 0.8rem; font-size: 1rem; border: 1px solid #d1d5db; border-radius: 6px; }
  .searchbar button { padding: 0.6rem 1.2rem; font-size: 1rem; border: none; border-radius: 6px; background: #2563eb; color: #fff; cursor: pointer; }
  .searchbar button.secondary { background: #6b7280; }
  .searchbar button:disabled { opacity: 0.6; cursor: wait; }
  #hint { color: #6b7280; margin: 1rem 0; }
  #results { display: grid; grid-template-columns: repeat(auto-fill, minmax(260px, 1fr)); gap: 1rem; margin-top: 1.5rem; }
  .card { background: #fff; border: 1px solid #e5e7eb; border-radius: 8px; overflow: hidden; }
  .card img { width: 100%; height: 200px; object-fit: cover; display: block; }
  .card .meta { padding: 0.5rem 0.75rem; font-size: 0.85rem; display: flex; justify-content: space-between; }
  .card .score { color: #2563eb; font-variant-numeric: tabular-nums; }
</style>
</head>
<body>
<header>
  <h1>SmartLens</h1>
  <span>semantic photo search &middot; {{.PhotosDir}}</span>
  <span id="count"></span>
</header>
<main>
  <div class="searchbar">
    <input id="query" type="text" placeholder="Describe a photo, e.g. sunset over mountains" autofocus>
    <button id="search">Search</button>
    <button id="reindex" class="secondary">Re-Index Photo Folder</button>
  </div>
  <div id="hint"></div>
  <div id="results"></div>
</main>
<script>
const queryInput = document.getElementById('query');
const hint = document.getElementById('hint');
const results = document.getElementById('results');
const searchBtn = document.getElementById('search');
const reindexBtn = document.getElementById('reindex');
const count = document.getElementById('count');

async function refreshCount() {
  try {
    const resp = await fetch('/api/v1/status');
    const status = await resp.json();
    count.textContent = status.photos + ' photos indexed';
  } catch (e) {
    count.textContent = '';
  }
}

async function runSearch() {
  hint.textContent = 'Searching...';
  results.innerHTML = '';
  const resp = await fetch('/api/v1/search', {
    method: 'POST',
    headers: {'Content-Type': 'application/json'},
    body: JSON.stringify({query: queryInput.value})
  });
  const data = await resp.json();
  if (data.error) { hint.textContent = data.error; return; }
  if (data.hint) { hint.textContent = data.hint; return; }
  hint.textContent = data.total + ' results in ' + data.query_time_ms + 'ms';
  for (const r of data.results) {
    const card = document.createElement('div');
    card.className = 'card';
    card.innerHTML = '<img src="' + r.thumbnail_url + '" alt="" loading="lazy">' +
      '<div class="meta"><span>' + r.photo.id + '</span>' +
      '<span class="score">' + r.score.toFixed(3) + '</span></div>';
    results.appendChild(card);
  }
}

async function runReindex() {
  reindexBtn.disabled = true;
  hint.textContent = 'Re-indexing photo folder...';
  try {
    const resp = await fetch('/api/v1/reindex', {method: 'POST'});
    const report = await resp.json();
    if (report.error) { hint.textContent = report.error; return; }
    hint.textContent = 'Indexed ' + report.indexed + ' photos (' +
      report.failed + ' failed) in ' + report.duration_ms + 'ms';
    refreshCount();
  } finally {
    reindexBtn.disabled = false;
  }
}

searchBtn.addEventListener('click', runSearch);
reindexBtn.addEventListener('click', runReindex);
queryInput.addEventListener('keydown', e => { if (e.key === 'Enter') runSearch(); });
refreshCount();
</script>
</body>
</html>`
