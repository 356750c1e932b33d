package overlay

import "strings"

// Script returns the browser snippet that connects to the overlay socket
// at path and shows incoming errors.
func Script(path string) string {
	if path == "" {
		path = DefaultPath
	}
	return strings.Replace(clientScript, "__OVERLAY_PATH__", path, 1)
}

const clientScript = `<script>
(function() {
    'use strict';

    var delay = 1000;

    function connect() {
        var protocol = location.protocol === 'https:' ? 'wss:' : 'ws:';
        var ws = new WebSocket(protocol + '//' + location.host + '__OVERLAY_PATH__');

        ws.onopen = function() { delay = 1000; };

        ws.onmessage = function(e) {
            var msg;
            try {
                msg = JSON.parse(e.data);
            } catch (err) {
                return;
            }
            if (msg.type === 'error') {
                show(msg);
            } else if (msg.type === 'clear') {
                clear();
            }
        };

        ws.onclose = function() {
            setTimeout(function() {
                delay = Math.min(delay * 2, 30000);
                connect();
            }, delay);
        };
    }

    function show(msg) {
        clear();
        var overlay = document.createElement('div');
        overlay.id = 'errpage-overlay';
        overlay.style.cssText = 'position:fixed;inset:0;background:rgba(0,0,0,0.9);color:#fff;font-family:monospace;font-size:14px;padding:20px;overflow:auto;z-index:999999;';

        var title = document.createElement('h2');
        title.style.cssText = 'color:#ff5555;margin:0 0 20px;';
        title.textContent = (msg.method || '') + ' ' + (msg.path || '') + ': ' + msg.message;

        var pre = document.createElement('pre');
        pre.style.cssText = 'white-space:pre-wrap;background:#1a1a1a;padding:20px;border-radius:8px;';
        pre.textContent = msg.stack;

        overlay.appendChild(title);
        overlay.appendChild(pre);
        overlay.onclick = clear;
        document.body.appendChild(overlay);
    }

    function clear() {
        var overlay = document.getElementById('errpage-overlay');
        if (overlay) {
            overlay.remove();
        }
    }

    connect();
})();
</script>
`
