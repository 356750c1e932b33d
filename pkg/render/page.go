package render

import (
	"encoding/json"
	"fmt"
	"io"
)

// MountID is the id of the element the client mounts into.
const MountID = "errpage-root"

// PayloadID is the id of the JSON payload script element.
const PayloadID = "__errpage"

// PageData contains all data needed to render a complete HTML page.
type PageData struct {
	// Title is the page title
	Title string

	// Lang is the language attribute for the html element
	// Defaults to "en" if not specified
	Lang string

	// Meta contains meta tags for the page
	Meta []MetaTag

	// StyleSheets contains paths to external stylesheets
	StyleSheets []string

	// Body writes the mount element's content. Nil leaves it empty.
	Body func(w io.Writer) error

	// Payload is serialized into the JSON payload script, if non-nil.
	Payload any

	// ClientScript is the path of the client entry module. Empty omits it.
	ClientScript string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name    string // name attribute
	Content string // content attribute
}

// RenderPage renders a complete HTML document to the given writer.
func (r *Renderer) RenderPage(w io.Writer, page PageData) error {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	if _, err := w.Write([]byte("<!DOCTYPE html>\n")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<html lang="%s">`+"\n", escapeAttr(lang)); err != nil {
		return err
	}

	if err := r.renderHead(w, page); err != nil {
		return err
	}

	if _, err := w.Write([]byte("<body>\n")); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, `<div id="%s">`, MountID); err != nil {
		return err
	}
	if page.Body != nil {
		if err := page.Body(w); err != nil {
			return err
		}
	}
	if _, err := w.Write([]byte("</div>\n")); err != nil {
		return err
	}

	if err := r.renderClientScript(w, page); err != nil {
		return err
	}

	if _, err := w.Write([]byte("</body>\n</html>\n")); err != nil {
		return err
	}
	return nil
}

// renderHead renders the document head section.
func (r *Renderer) renderHead(w io.Writer, page PageData) error {
	if _, err := w.Write([]byte("<head>\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(`  <meta charset="utf-8">` + "\n")); err != nil {
		return err
	}
	if _, err := w.Write([]byte(`  <meta name="viewport" content="width=device-width, initial-scale=1">` + "\n")); err != nil {
		return err
	}

	if page.Title != "" {
		if _, err := fmt.Fprintf(w, "  <title>%s</title>\n", escapeHTML(page.Title)); err != nil {
			return err
		}
	}

	for _, meta := range page.Meta {
		if err := r.renderMetaTag(w, meta); err != nil {
			return err
		}
	}

	for _, href := range page.StyleSheets {
		if _, err := fmt.Fprintf(w, `  <link rel="stylesheet" href="%s">`+"\n", escapeAttr(href)); err != nil {
			return err
		}
	}

	if _, err := w.Write([]byte("</head>\n")); err != nil {
		return err
	}
	return nil
}

// renderMetaTag renders a meta element.
func (r *Renderer) renderMetaTag(w io.Writer, meta MetaTag) error {
	if _, err := fmt.Fprintf(w, `  <meta name="%s" content="%s">`+"\n",
		escapeAttr(meta.Name), escapeAttr(meta.Content)); err != nil {
		return err
	}
	return nil
}

// renderClientScript writes the JSON payload and the client entry script.
func (r *Renderer) renderClientScript(w io.Writer, page PageData) error {
	if page.Payload != nil {
		// json.Marshal escapes <, > and & so the payload cannot close the
		// script element.
		data, err := json.Marshal(page.Payload)
		if err != nil {
			return fmt.Errorf("render: encode payload: %w", err)
		}
		if _, err := fmt.Fprintf(w, `<script type="application/json" id="%s">%s</script>`+"\n", PayloadID, data); err != nil {
			return err
		}
	}

	if page.ClientScript != "" {
		if _, err := fmt.Fprintf(w, `<script type="module" src="%s"></script>`+"\n", escapeAttr(page.ClientScript)); err != nil {
			return err
		}
	}
	return nil
}
