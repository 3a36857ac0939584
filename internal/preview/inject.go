package preview

import (
	"bytes"
	"net/http"
	"strings"
)

const (
	scriptPath   = "/__livereload.js"
	eventsPath   = "/__livereload"
	metricsPath  = "/__metrics"
	scriptTag    = `<script async src="` + scriptPath + `"></script>`
	maxInjectBuf = 512 * 1024
)

// LiveReloadScript is served at /__livereload.js. CSS events swap matching
// stylesheets without a reload; anything else reloads the page.
const LiveReloadScript = `(() => {
  if (window.__ASSETBUILDER_LR__) return;
  window.__ASSETBUILDER_LR__ = true;
  function swapCSS(paths) {
    const links = document.querySelectorAll('link[rel="stylesheet"]');
    let swapped = 0;
    links.forEach((link) => {
      const url = new URL(link.href, location.href);
      if (url.origin !== location.origin) return;
      if (paths.length && !paths.includes(url.pathname)) return;
      url.searchParams.set('livereload', Date.now());
      link.href = url.toString();
      swapped++;
    });
    if (!swapped) location.reload();
  }
  function connect() {
    const es = new EventSource('` + eventsPath + `');
    es.onmessage = (e) => {
      try {
        const ev = JSON.parse(e.data);
        if (ev.type === 'css') { swapCSS(ev.paths || []); return; }
        console.log('[assetbuilder] change detected, reloading');
        location.reload();
      } catch (_) {}
    };
    es.onerror = () => { console.warn('[assetbuilder] livereload error - retrying'); es.close(); setTimeout(connect, 2000); };
  }
  connect();
})();
`

// InjectLiveReload adds the live reload script tag to HTML pages served by next.
func InjectLiveReload(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		isHTMLPage := path == "" || strings.HasSuffix(path, "/") || strings.HasSuffix(path, ".html")
		if !isHTMLPage || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}

		injector := &liveReloadInjector{ResponseWriter: w, statusCode: http.StatusOK, maxSize: maxInjectBuf}
		next.ServeHTTP(injector, r)
		injector.finalize()
	})
}

// liveReloadInjector buffers an HTML response (up to maxSize) so the script
// tag can be inserted before </body>. Larger or non-HTML bodies pass through.
type liveReloadInjector struct {
	http.ResponseWriter
	statusCode    int
	buffer        []byte
	headerWritten bool
	passthrough   bool
	maxSize       int
}

func (l *liveReloadInjector) WriteHeader(code int) {
	l.statusCode = code
	if l.passthrough {
		l.ResponseWriter.WriteHeader(code)
		l.headerWritten = true
	}
}

func (l *liveReloadInjector) Write(data []byte) (int, error) {
	if !l.headerWritten && !l.passthrough && l.buffer == nil {
		contentType := l.ResponseWriter.Header().Get("Content-Type")
		isHTML := contentType == "" || strings.Contains(contentType, "text/html")
		if !isHTML || l.statusCode != http.StatusOK {
			l.passthrough = true
			l.ResponseWriter.WriteHeader(l.statusCode)
			l.headerWritten = true
			return l.ResponseWriter.Write(data)
		}
		l.buffer = make([]byte, 0, 64*1024)
	}

	if l.passthrough {
		return l.ResponseWriter.Write(data)
	}

	if len(l.buffer)+len(data) > l.maxSize {
		l.passthrough = true
		l.ResponseWriter.WriteHeader(l.statusCode)
		l.headerWritten = true
		if len(l.buffer) > 0 {
			if _, err := l.ResponseWriter.Write(l.buffer); err != nil {
				return 0, err
			}
		}
		return l.ResponseWriter.Write(data)
	}

	l.buffer = append(l.buffer, data...)
	return len(data), nil
}

// finalize writes the buffered page with the script injected.
func (l *liveReloadInjector) finalize() {
	if l.passthrough || len(l.buffer) == 0 {
		if !l.headerWritten {
			l.ResponseWriter.WriteHeader(l.statusCode)
		}
		return
	}

	page := l.buffer
	if i := bytes.LastIndex(bytes.ToLower(page), []byte("</body>")); i >= 0 {
		page = append(page[:i:i], append([]byte(scriptTag), page[i:]...)...)
	} else {
		page = append(page, []byte(scriptTag)...)
	}

	l.ResponseWriter.Header().Del("Content-Length")
	l.ResponseWriter.WriteHeader(l.statusCode)
	_, _ = l.ResponseWriter.Write(page)
}
