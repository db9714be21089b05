package web

// View identifies a screen of the application.
type View string

const (
	ViewHome      View = "home"
	ViewGenerator View = "generator"
	ViewAcademy   View = "academy"
	ViewResult    View = "result"
	ViewHistory   View = "history"
)

// navViews are the screens listed in the header, in display order.
var navViews = []View{ViewHome, ViewGenerator, ViewAcademy, ViewHistory}

// ParseView returns the view named s. Unknown names fall back to home.
func ParseView(s string) View {
	switch v := View(s); v {
	case ViewHome, ViewGenerator, ViewAcademy, ViewResult, ViewHistory:
		return v
	}
	return ViewHome
}

// Path returns the URL that renders the view.
func (v View) Path() string {
	switch v {
	case ViewGenerator:
		return "/generator"
	case ViewAcademy:
		return "/academy"
	case ViewHistory, ViewResult:
		return "/history"
	}
	return "/"
}

func (v View) Label() string {
	switch v {
	case ViewGenerator:
		return "Generador"
	case ViewAcademy:
		return "Academia"
	case ViewHistory:
		return "Historial"
	case ViewResult:
		return "Anuncio"
	}
	return "Inicio"
}
