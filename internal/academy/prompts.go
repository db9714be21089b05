// Package academy holds the curated prompt library agents can copy into
// their own AI tools.
package academy

import "unicode/utf8"

// ExcerptLength is the number of characters shown on a prompt card.
const ExcerptLength = 150

// Prompt is one entry of the library.
type Prompt struct {
	Title  string
	Prompt string
}

// Excerpt returns the first ExcerptLength characters of the prompt followed
// by an ellipsis.
func (p Prompt) Excerpt() string {
	if utf8.RuneCountInString(p.Prompt) <= ExcerptLength {
		return p.Prompt + "..."
	}
	runes := []rune(p.Prompt)
	return string(runes[:ExcerptLength]) + "..."
}

// Library returns the prompts in display order.
func Library() []Prompt {
	return append([]Prompt(nil), library...)
}

var library = []Prompt{
	{
		Title:  "Crear 3 titulares para Instagram",
		Prompt: "Actúa como un copywriter inmobiliario experto. Escribe 3 titulares diferentes y llamativos para un anuncio en Instagram sobre un [tipo de propiedad] con [característica principal] en [zona].",
	},
	{
		Title:  "Escribir email de seguimiento post-visita",
		Prompt: "Actúa como un agente inmobiliario proactivo. Escribe un email de seguimiento personalizado para un cliente llamado [nombre del cliente] que acaba de visitar la propiedad en [dirección]. Agradece su tiempo, resume los puntos fuertes de la propiedad y pregunta si tiene alguna duda.",
	},
	{
		Title:  "Guion para vídeo de 1 minuto",
		Prompt: "Crea un guion para un vídeo de 1 minuto (formato reel/short) mostrando una propiedad. Estructúralo en 3 partes: 1) Gancho inicial, 2) Recorrido rápido por 3-4 estancias clave, 3) Llamada a la acción clara.",
	},
	{
		Title:  "Responder a la objeción 'el precio es alto'",
		Prompt: "Actúa como un negociador experto. Un cliente dice que el precio de la propiedad en [dirección] es demasiado alto. Proporciona 3 argumentos sólidos para justificar el precio, basados en características de la propiedad y la situación del mercado en la zona.",
	},
	{
		Title:  "Generar texto para un folleto",
		Prompt: "Escribe un texto conciso y persuasivo para un folleto de una nueva promoción de viviendas. Incluye un titular, una breve introducción sobre el proyecto, 3-5 puntos clave con iconos y una llamada a la acción.",
	},
	{
		Title:  "Campaña de email para captar propietarios",
		Prompt: "Diseña una secuencia de 3 emails para una campaña de captación de propietarios en la zona de [barrio/ciudad]. Email 1: Presentación y valoración gratuita. Email 2: Aportar valor (informe de mercado). Email 3: Caso de éxito y llamada a la acción.",
	},
	{
		Title:  "Descripción enfocada en un tipo de cliente",
		Prompt: "Escribe una descripción de un anuncio para un [tipo de propiedad] en [dirección], enfocada específicamente a [tipo de cliente, ej. 'familias jóvenes', 'inversores']. Destaca las características que más valorarían.",
	},
	{
		Title:  "Publicación para LinkedIn sobre mercado local",
		Prompt: "Redacta una publicación para LinkedIn (3-4 párrafos) posicionándome como experto en el mercado inmobiliario de [ciudad]. Analiza una tendencia reciente y ofrece un consejo práctico.",
	},
	{
		Title:  "Generar preguntas para cualificar a un comprador",
		Prompt: "Crea una lista de 5 preguntas clave para cualificar a un lead comprador por teléfono o email, para entender sus necesidades, presupuesto y urgencia.",
	},
	{
		Title:  "Mensaje de WhatsApp para reactivar contacto",
		Prompt: "Escribe un mensaje de WhatsApp corto y amigable para reactivar el contacto con un cliente que mostró interés hace meses. El mensaje debe ser casual y aportar valor.",
	},
	{
		Title:  "Crear nombre para promoción de obra nueva",
		Prompt: "Genera 5 nombres creativos para una nueva promoción de viviendas en [ciudad], que transmita sensaciones de [concepto 1, ej. modernidad] y [concepto 2, ej. naturaleza].",
	},
	{
		Title:  "Guion para llamada en frío a un propietario",
		Prompt: "Desarrolla un guion breve y efectivo para una llamada en frío a un propietario que intenta vender su casa por su cuenta. El objetivo es conseguir una cita para explicarle mis servicios.",
	},
	{
		Title:  "Generar ideas de contenido para blog",
		Prompt: "Dame 10 ideas para artículos de blog para una inmobiliaria en España, que sean útiles para compradores y vendedores y ayuden a posicionar la marca como experta.",
	},
	{
		Title:  "Redactar una bio profesional para portales",
		Prompt: "Escribe una biografía profesional de unas 100 palabras para mi perfil en portales inmobiliarios. Debe destacar mi experiencia, mi especialización en [zona] y mi compromiso con los clientes.",
	},
	{
		Title:  "Argumentario de venta para una visita",
		Prompt: "Prepara un argumentario de venta para la propiedad en [dirección]. Identifica los 5 puntos fuertes principales y los 2 puntos débiles potenciales, con una propuesta para rebatirlos.",
	},
}
