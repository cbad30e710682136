package view

import (
	"bytes"
	"encoding/json"
	"html/template"
)

// ViewPageData provides the dynamic fields required by the protected viewing
// page template.
type ViewPageData struct {
	Title                string
	AccessCode           string
	SessionID            string
	MediaURL             string
	SessionSeconds       int
	RemainingViews       int
	ToastDurationMs      int
	ScreenshotCooldownMs int
	ScreenshotDebounceMs int
	IdleTimeoutMs        int
	LayoutJSON           template.JS
	SupportContact       string
}

var viewPageTmpl = template.Must(template.New("view_page").Parse(`
<!DOCTYPE html>
<html lang="en">
<head>
	<meta charset="utf-8" />
	<meta name="viewport" content="width=device-width, initial-scale=1" />
	<title>{{if .Title}}{{.Title}}{{else}}Protected content{{end}}</title>
	<style>
		:root {
			--bg: #0a1a2f;
			--card: rgba(255, 255, 255, 0.05);
			--border: rgba(255, 255, 255, 0.1);
			--text: #ffffff;
			--muted: rgba(255, 255, 255, 0.6);
			--accent: #00c6b3;
			font-family: "Inter", -apple-system, BlinkMacSystemFont, "Segoe UI", sans-serif;
		}
		* { box-sizing: border-box; }
		body {
			margin: 0;
			min-height: 100vh;
			background: var(--bg);
			color: var(--text);
		}
		header, footer {
			background: var(--card);
			border-bottom: 1px solid var(--border);
			padding: 14px 24px;
			display: flex;
			align-items: center;
			justify-content: space-between;
			gap: 12px;
		}
		footer {
			border-bottom: 0;
			border-top: 1px solid var(--border);
			position: fixed;
			bottom: 0;
			left: 0;
			right: 0;
		}
		.badge {
			background: rgba(255, 255, 255, 0.1);
			border-radius: 10px;
			padding: 8px 14px;
			font-family: ui-monospace, monospace;
			font-size: 0.85rem;
		}
		.badge span { color: var(--accent); }
		main {
			max-width: 1100px;
			margin: 32px auto 80px;
			padding: 0 24px;
		}
		.stage {
			position: relative;
			border-radius: 12px;
			overflow: hidden;
			background: #ffffff;
			transition: filter 0.3s ease;
		}
		.stage.blurred { filter: blur(18px); }
		.stage img {
			display: block;
			width: 100%;
			user-select: none;
			-webkit-user-drag: none;
		}
		.mark {
			position: absolute;
			pointer-events: none;
			user-select: none;
			white-space: nowrap;
			font-family: ui-monospace, monospace;
			font-size: 0.85rem;
		}
		.toast {
			position: fixed;
			bottom: 84px;
			left: 50%;
			transform: translateX(-50%);
			background: rgba(255, 255, 255, 0.12);
			backdrop-filter: blur(12px);
			border-radius: 10px;
			padding: 10px 18px;
			font-size: 0.9rem;
			display: none;
		}
		.toast.show { display: block; }
	</style>
</head>
<body>
	<header>
		<div class="badge">Access Code: <span>{{.AccessCode}}</span></div>
		<div class="badge">Session expires in: <span id="countdown">--:--</span></div>
		<div class="badge">Views left: <span id="views">{{.RemainingViews}}</span></div>
	</header>

	<main>
		<div id="stage" class="stage">
			<div id="marks"></div>
			<img id="media" src="{{.MediaURL}}" alt="{{.Title}}" draggable="false" />
		</div>
	</main>

	<footer>
		<div>Protected by SecureView • Session ID: {{.SessionID}}</div>
		<div>Questions? Contact {{.SupportContact}}</div>
	</footer>

	<div id="toast" class="toast"></div>

	<script>
		(function() {
			const layout = {{.LayoutJSON}};
			const toastMs = {{.ToastDurationMs}};
			const shotCooldownMs = {{.ScreenshotCooldownMs}};
			const shotDebounceMs = {{.ScreenshotDebounceMs}};
			const idleTimeoutMs = {{.IdleTimeoutMs}};
			let remaining = {{.SessionSeconds}};
			const stage = document.getElementById("stage");
			const marksHost = document.getElementById("marks");
			const countdown = document.getElementById("countdown");
			const toast = document.getElementById("toast");
			let toastTimer = null;
			let suspectUntil = 0;
			let pinned = false;
			let lastKeyTrigger = 0;
			let lastActivity = Date.now();

			// Watermark layout is generated once per session and never
			// re-randomized on re-render.
			for (const mark of layout.marks) {
				const el = document.createElement("div");
				el.className = "mark";
				el.textContent = mark.text;
				el.style.left = mark.x + "%";
				el.style.top = mark.y + "%";
				el.style.color = mark.color;
				el.style.opacity = mark.opacity;
				el.style.transform = "rotate(" + mark.rotation + "deg) scale(" + mark.scale + ")";
				if (mark.special) {
					el.style.fontWeight = "700";
					el.style.zIndex = "10";
				}
				marksHost.appendChild(el);
			}

			const showToast = (message) => {
				toast.textContent = message;
				toast.classList.add("show");
				if (toastTimer) clearTimeout(toastTimer);
				toastTimer = setTimeout(() => toast.classList.remove("show"), toastMs);
			};

			const suspect = (message, holdMs) => {
				suspectUntil = Math.max(suspectUntil, Date.now() + holdMs);
				showToast(message);
				render();
			};

			const blurred = () => pinned || document.hidden ||
				(window.outerHeight - window.innerHeight > 100) ||
				Date.now() < suspectUntil ||
				(Date.now() - lastActivity >= idleTimeoutMs);

			const render = () => {
				stage.classList.toggle("blurred", blurred());
			};

			const activity = () => { lastActivity = Date.now(); render(); };
			["pointermove", "pointerdown", "scroll", "wheel"].forEach((name) =>
				window.addEventListener(name, activity, { passive: true }));

			document.addEventListener("visibilitychange", () => {
				if (document.hidden) showToast("Content blurred for security");
				render();
			});

			window.addEventListener("resize", () => {
				if (window.outerHeight - window.innerHeight > 100) {
					showToast("DevTools detected - Content protected");
				}
				render();
			});

			document.addEventListener("keydown", (e) => {
				activity();
				const mac = navigator.platform.toUpperCase().indexOf("MAC") >= 0;
				const combo = mac
					? (e.metaKey && e.shiftKey && (e.key === "3" || e.key === "4"))
					: (e.key === "PrintScreen");
				if (!combo) return;
				const now = Date.now();
				if (now - lastKeyTrigger < shotDebounceMs) return;
				lastKeyTrigger = now;
				suspect("Screenshot blocked - Content protected", shotCooldownMs);
			});

			if ("ontouchstart" in window) {
				window.addEventListener("touchstart", () => {
					activity();
					suspect("Action restricted for content protection", 2000);
				}, { passive: true });
			}

			if (navigator.mediaDevices && navigator.mediaDevices.getDisplayMedia) {
				pinned = true;
				showToast("Screen capture capability detected");
			}

			document.addEventListener("contextmenu", (e) => {
				e.preventDefault();
				showToast("Right-click disabled for security");
			});

			const tick = () => {
				remaining -= 1;
				if (remaining <= 0) {
					window.location.assign("/");
					return;
				}
				const m = Math.floor(remaining / 60);
				const s = (remaining % 60).toString().padStart(2, "0");
				countdown.textContent = m + ":" + s;
				render();
				setTimeout(tick, 1000);
			};
			countdown.textContent = Math.floor(remaining / 60) + ":" + (remaining % 60).toString().padStart(2, "0");
			setTimeout(tick, 1000);
			render();
		})();
	</script>
</body>
</html>
`))

// RenderViewPage expands the protected viewing page template.
func RenderViewPage(data ViewPageData) (string, error) {
	if data.Title == "" {
		data.Title = "Protected content"
	}
	if data.ScreenshotCooldownMs <= 0 {
		data.ScreenshotCooldownMs = 2500
	}
	if data.ScreenshotDebounceMs <= 0 {
		data.ScreenshotDebounceMs = 1000
	}
	if data.IdleTimeoutMs <= 0 {
		data.IdleTimeoutMs = 60000
	}
	var buf bytes.Buffer
	if err := viewPageTmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// LayoutJS marshals a watermark layout for safe embedding in the template.
func LayoutJS(layout interface{}) (template.JS, error) {
	data, err := json.Marshal(layout)
	if err != nil {
		return "", err
	}
	return template.JS(data), nil
}
