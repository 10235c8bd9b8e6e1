package pipeline

import (
	"fmt"
	"math"
	"path"
	"regexp"
	"strconv"
	"strings"
)

// defaultImageExt replaces print-only formats and fills in missing extensions.
const defaultImageExt = ".png"

var webImageExts = map[string]bool{
	".png": true, ".jpg": true, ".jpeg": true, ".gif": true, ".svg": true, ".webp": true,
}

var printImageExts = map[string]bool{
	".pdf": true, ".eps": true, ".ps": true,
}

var (
	// 0.5\textwidth, \linewidth, .3\columnwidth, 0.4\textheight
	relativeLength = regexp.MustCompile(`^(-?\d*\.?\d*)\s*\\(textwidth|linewidth|columnwidth|hsize|textheight|paperheight)$`)
	// 3cm, -1.5em, 20pt
	absoluteLength = regexp.MustCompile(`^(-?\d*\.?\d+)\s*(cm|mm|in|pt|bp|pc|px|em|ex)$`)
)

// cssLength converts a LaTeX length to CSS. Width-relative lengths become
// percentages and height-relative lengths viewport units.
func cssLength(latex string) (string, bool) {
	s := strings.TrimSpace(latex)
	if m := relativeLength.FindStringSubmatch(s); m != nil {
		f := 1.0
		if m[1] != "" && m[1] != "-" {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				return "", false
			}
			f = v
		} else if m[1] == "-" {
			f = -1
		}
		unit := "%"
		if m[2] == "textheight" || m[2] == "paperheight" {
			unit = "vh"
		}
		return formatFloat(f*100) + unit, true
	}
	if m := absoluteLength.FindStringSubmatch(s); m != nil {
		unit := m[2]
		if unit == "bp" {
			unit = "pt"
		}
		v, err := strconv.ParseFloat(m[1], 64)
		if err != nil {
			return "", false
		}
		return formatFloat(v) + unit, true
	}
	return "", false
}

// formatFloat rounds to four decimals so 0.3*100 prints as 30.
func formatFloat(f float64) string {
	return strconv.FormatFloat(math.Round(f*1e4)/1e4, 'f', -1, 64)
}

// normalizeImagePath maps a graphics file name to one a browser can show.
func normalizeImagePath(file string) (string, bool) {
	file = strings.TrimSpace(file)
	if file == "" {
		return "", false
	}
	ext := strings.ToLower(path.Ext(file))
	switch {
	case ext == "":
		return file + defaultImageExt, true
	case printImageExts[ext]:
		return strings.TrimSuffix(file, path.Ext(file)) + defaultImageExt, true
	case webImageExts[ext]:
		return file, true
	default:
		// Dots inside the base name (plot.v2): LaTeX would look for plot.v2.png.
		return file + defaultImageExt, false
	}
}

// imageStyle translates \includegraphics options into a CSS declaration list.
func (r *Renderer) imageStyle(opts string) string {
	var decls []string
	for _, kv := range strings.Split(opts, ",") {
		key, val, _ := strings.Cut(kv, "=")
		key, val = strings.TrimSpace(key), strings.TrimSpace(val)
		switch key {
		case "":
		case "width", "height", "max width", "max height":
			css, ok := cssLength(val)
			if !ok {
				r.Reporter.Warn(DiagImage, key, "unsupported image length "+val)
				continue
			}
			decls = append(decls, strings.ReplaceAll(key, " ", "-")+":"+css)
		case "scale":
			if _, err := strconv.ParseFloat(val, 64); err != nil {
				r.Reporter.Warn(DiagImage, key, "unsupported image scale "+val)
				continue
			}
			decls = append(decls, "zoom:"+val)
		case "angle":
			deg, err := strconv.ParseFloat(val, 64)
			if err != nil {
				r.Reporter.Warn(DiagImage, key, "unsupported image angle "+val)
				continue
			}
			// LaTeX rotates counter-clockwise, CSS clockwise.
			decls = append(decls, "transform:rotate("+formatFloat(-deg)+"deg)")
		case "keepaspectratio":
			decls = append(decls, "object-fit:contain")
		default:
			r.Reporter.Warn(DiagImage, key, "unsupported image option "+key)
		}
	}
	return strings.Join(decls, ";")
}

// imageTag renders \includegraphics[opts]{file}.
func (r *Renderer) imageTag(opts, file string, ok bool) string {
	name, known := normalizeImagePath(file)
	if !ok || name == "" {
		r.Reporter.Warn(DiagImage, file, "malformed \\includegraphics, rendering placeholder")
		return `<img class="broken-image" alt="missing image">`
	}
	if !known {
		r.Reporter.Warn(DiagImage, file, "unknown image extension, assuming "+defaultImageExt)
	}

	alt := strings.TrimSuffix(path.Base(name), path.Ext(name))
	tag := fmt.Sprintf(`<img src="%s" alt="%s"`, attr(r.ImageDir+name), attr(alt))
	if style := r.imageStyle(opts); style != "" {
		tag += fmt.Sprintf(` style="%s"`, attr(style))
	}
	return tag + ">"
}

// ReplaceImages converts every \includegraphics in s.
func (r *Renderer) ReplaceImages(s string) string {
	var b strings.Builder
	i := 0
	for {
		p := findCommand(s, i, "includegraphics")
		if p < 0 {
			break
		}
		b.WriteString(s[i:p])
		j := p + len(`\includegraphics`)
		if j < len(s) && s[j] == '*' {
			j++
		}
		opts, after, _ := readOptional(s, j)
		if after > j {
			j = after
		}
		file, end, ok := readArg(s, j)
		if !ok {
			end = j
		}
		b.WriteString(r.imageTag(opts, file, ok))
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}

func (r *Renderer) figure(el *Element, f fragment) string {
	d := el.Figure
	// Theorems, lists and listings in the body are converted before the
	// figure's own markup.
	body := r.splice(d.Body, r.extractor(f).ExtractWithin(d.Body, el.Inner), f).Text
	body, centered := removeCommand(body, "centering")
	body = r.figureContent(body)

	class := "figure"
	if centered {
		class += " centered"
	}

	var b strings.Builder
	fmt.Fprintf(&b, `<figure class="%s" id="%s">`+"\n", class, attr(d.ID))
	b.WriteString(body)
	if d.Caption != "" {
		prefix := "Figure"
		if d.Number != "" {
			prefix += " " + d.Number
		}
		fmt.Fprintf(&b, "\n"+`<figcaption><span class="figure-label">%s:</span> %s</figcaption>`, prefix, d.Caption)
	}
	b.WriteString("\n</figure>")
	return b.String()
}

// figureContent converts minipages, images, sub-captions and horizontal
// spacing inside a figure body.
func (r *Renderer) figureContent(body string) string {
	var b strings.Builder
	last := 0
	for _, mp := range envSpans(body, minipageFamily) {
		b.WriteString(r.figureInline(body[last:mp.start]))
		b.WriteString(r.minipage(body[mp.start:mp.end]))
		last = mp.end
	}
	b.WriteString(r.figureInline(body[last:]))
	return strings.TrimSpace(b.String())
}

// minipage renders \begin{minipage}[pos]{width}...\end{minipage} as an
// inline block.
func (r *Renderer) minipage(raw string) string {
	begin, _ := nextEnvTag(raw, 0)
	end := strings.LastIndex(raw, endPrefix+"minipage}")
	j := begin.after
	if _, after, ok := readOptional(raw, j); ok {
		j = after
	}
	style := "display:inline-block;vertical-align:top"
	if width, after, ok := readArg(raw, j); ok {
		j = after
		if css, ok := cssLength(width); ok {
			style += ";width:" + css
		} else {
			r.Reporter.Warn(DiagImage, "minipage", "unsupported minipage width "+width)
		}
	}
	if end < j {
		end = j
	}

	inner, _ := removeCommand(raw[j:end], "centering")
	inner = r.figureContent(inner)
	return fmt.Sprintf(`<div class="minipage" style="%s">%s</div>`, style, inner)
}

// figureInline handles the non-minipage parts of a figure body.
func (r *Renderer) figureInline(s string) string {
	s = r.ReplaceImages(s)
	s = replaceArgCommand(s, "caption", func(arg string) string {
		return `<div class="subcaption">` + arg + `</div>`
	})
	s = replaceArgCommand(s, "subcaption", func(arg string) string {
		return `<div class="subcaption">` + arg + `</div>`
	})
	return replaceHorizontalSpacing(s)
}

// removeCommand deletes every bare \name outside minipages and reports
// whether one was present.
func removeCommand(s, name string) (string, bool) {
	found := false
	for i := 0; ; {
		p := findCommand(s, i, name)
		if p < 0 {
			return s, found
		}
		if inSpans(p, envSpans(s, minipageFamily)) {
			i = p + 1
			continue
		}
		found = true
		s = s[:p] + s[p+1+len(name):]
		i = p
	}
}

// replaceArgCommand rewrites every \name{arg} with fn(arg).
func replaceArgCommand(s, name string, fn func(string) string) string {
	var b strings.Builder
	i := 0
	for {
		p := findCommand(s, i, name)
		if p < 0 {
			break
		}
		arg, end, ok := readArg(s, p+1+len(name))
		if !ok {
			b.WriteString(s[i : p+1])
			i = p + 1
			continue
		}
		b.WriteString(s[i:p])
		b.WriteString(fn(arg))
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}

// replaceHorizontalSpacing converts \hspace{L} and \hfill to spacer spans.
func replaceHorizontalSpacing(s string) string {
	s = replaceStarredArgCommand(s, "hspace", func(arg string) string {
		if css, ok := cssLength(arg); ok {
			return fmt.Sprintf(`<span class="hspace" style="display:inline-block;width:%s"></span>`, css)
		}
		return `<span class="hspace"></span>`
	})
	return replaceBareCommand(s, "hfill", `<span class="hfill"></span>`)
}

// replaceStarredArgCommand is replaceArgCommand that also accepts \name*{arg}.
func replaceStarredArgCommand(s, name string, fn func(string) string) string {
	s = replaceArgCommand(s, name+"*", fn)
	return replaceArgCommand(s, name, fn)
}

// replaceBareCommand rewrites every \name (no argument) with repl, eating one
// following space or an empty {} group.
func replaceBareCommand(s, name, repl string) string {
	var b strings.Builder
	i := 0
	for {
		p := findCommand(s, i, name)
		if p < 0 {
			break
		}
		b.WriteString(s[i:p])
		b.WriteString(repl)
		end := p + 1 + len(name)
		switch {
		case strings.HasPrefix(s[end:], "{}"):
			end += 2
		case end < len(s) && s[end] == ' ':
			end++
		}
		i = end
	}
	b.WriteString(s[i:])
	return b.String()
}
