package classify

import (
	"strings"
	"time"

	"RiskScanner/internal/domain"
)

var corpusDay = time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)

func corpusDoc(source, code, title, body string) domain.Document {
	return domain.Document{
		SourceID:     source,
		Title:        title,
		Body:         body,
		CategoryCode: code,
		PublishedAt:  corpusDay,
		URL:          "https://example.org/" + strings.ReplaceAll(strings.ToLower(title), " ", "-"),
	}
}

// referenceCorpus is a fixed mixture resembling a week of gazette, news and
// feed items for one company.
func referenceCorpus() []domain.Document {
	filler := " La información se ha publicado en la edición de hoy y recoge los datos facilitados por la propia compañía a sus accionistas y a los medios."
	return []domain.Document{
		corpusDoc("gazette", "JUS", "Resolución del Ministerio de Justicia", "Anuncio relativo a Acme SA."),
		corpusDoc("gazette", "CNMV", "Comunicación de la CNMV", "Hecho relevante remitido por Acme SA."),
		corpusDoc("gazette", "BDE", "Banco de España", "Registro de entidades, modificación de datos de Acme SA."),
		corpusDoc("gazette", "HAC", "Anuncio de Hacienda", "Acme SA. Subasta de bienes."),
		corpusDoc("gazette", "TS", "Sentencia del Tribunal Supremo", "Recurso de casación interpuesto por Acme SA."),
		corpusDoc("gazette", "", "Edicto concursal", "Se declara el concurso de acreedores de Acme SA, con CIF A00000000."+filler),
		corpusDoc("newsapi", "", "Acme SA entra en preconcurso", "La compañía ha comunicado al juzgado su situación de preconcurso."+filler),
		corpusDoc("newsapi", "", "Imputado el consejero delegado de Acme", "El juez ha imputado al consejero delegado por un presunto delito."+filler),
		corpusDoc("newsapi", "", "Acme, multada", "La CNMC impone una multa de 12 millones a Acme SA por prácticas anticompetitivas."+filler),
		corpusDoc("newsapi", "", "Expediente sancionador a Acme", "La CNMV abre un expediente sancionador a Acme SA."+filler),
		corpusDoc("newsapi", "", "Demanda colectiva contra Acme", "Una asociación de consumidores presenta una demanda colectiva."+filler),
		corpusDoc("newsapi", "", "Profit warning de Acme", "Acme SA emite un profit warning para el ejercicio."+filler),
		corpusDoc("newsapi", "", "Huelga en Acme", "Los sindicatos convocan huelga en las plantas de Acme SA."+filler),
		corpusDoc("newsapi", "", "Ciberataque a Acme", "Acme SA sufre un ciberataque que afecta a sus sistemas."+filler),
		corpusDoc("newsapi", "", "Acme cae en bolsa", "Las acciones de Acme SA cae en bolsa un 4% tras los resultados."+filler),
		corpusDoc("newsapi", "", "Acme registra pérdidas", "Acme SA registra pérdidas en el tercer trimestre."+filler),
		corpusDoc("newsapi", "", "Averías en la red de Acme", "Clientes reportan una avería generalizada en la red de Acme SA."+filler),
		corpusDoc("rss", "", "El equipo patrocinado por Acme gana", "El equipo patrocinado por Acme gana el partido de la jornada."+filler),
		corpusDoc("rss", "", "Acme patrocina un concierto", "Acme SA patrocina un concierto benéfico en Madrid."+filler),
		corpusDoc("rss", "", "Récord de beneficios en Acme", "Acme SA anuncia récord de beneficios en 2024."+filler),
		corpusDoc("rss", "", "Acme inaugura sede", "Acme SA inaugura su nueva sede en Valencia."+filler),
		corpusDoc("rss", "", "Acme lanza un nuevo producto", "Acme SA lanza un nuevo producto para el mercado doméstico."+filler),
		corpusDoc("rss", "", "Expansión internacional de Acme", "La expansión internacional de Acme SA continúa en México."+filler),
		corpusDoc("rss", "", "Acme reparte un dividendo", "Acme SA reparte un dividendo de 0,20 euros por acción."+filler),
		corpusDoc("rss", "", "Estreno patrocinado", "El estreno de la película cuenta con el apoyo de Acme SA."+filler),
		corpusDoc("rss", "", "Acme en la Champions League", "Acme SA será patrocinador oficial de la Champions League."+filler),
		corpusDoc("rss", "", "Breve", "Acme SA cambia de logotipo."),
		corpusDoc("rss", "", "Agenda", "Acme SA presenta resultados el jueves."),
		corpusDoc("rss", "", "Acme contrata", "Acme SA incorpora 200 empleados."),
		corpusDoc("rss", "", "Nota de prensa", "Acme SA asiste a una feria del sector."),
		corpusDoc("newsapi", "", "Nombramiento en Acme", "Acme SA anuncia el nombramiento de un nuevo consejero tras la decisión del tribunal de arbitraje interno de la compañía."+filler),
		corpusDoc("newsapi", "", "Acme firma un acuerdo", "Acme SA firma un acuerdo de colaboración con una universidad para investigar nuevos materiales de construcción sostenibles."+filler),
		corpusDoc("newsapi", "", "Acme y su plan estratégico", "El plan estratégico de Acme SA contempla inversiones en digitalización y en la mejora de la atención al cliente."+filler),
		corpusDoc("newsapi", "", "Acme renueva su web", "Acme SA renueva su página corporativa e incorpora nuevos canales de comunicación con los inversores."+filler),
		corpusDoc("newsapi", "", "Acme celebra su aniversario", "Acme SA celebra su cincuenta aniversario con un acto institucional en su sede central de Madrid."+filler),
		corpusDoc("newsapi", "", "Acme ante el tribunal", "Un proveedor ha llevado a Acme SA ante el tribunal por el retraso en el pago de varias facturas del año pasado."+filler),
		corpusDoc("newsapi", "", "Acme y el regulador", "El regulador estudia la operación de compra anunciada por Acme SA la semana pasada en el sector energético."+filler),
		corpusDoc("rss", "", "Opinión sobre Acme", "Los analistas mantienen su recomendación sobre Acme SA a la espera de nuevos datos del sector y de la evolución del consumo."+filler),
		corpusDoc("rss", "", "Acme y la sostenibilidad", "Acme SA publica su informe de sostenibilidad con los principales indicadores ambientales del ejercicio."+filler),
		corpusDoc("rss", "", "Acme cambia de presidente", "La junta general de Acme SA aprueba el cese de su presidente tras la denuncia presentada por un accionista minoritario."+filler),
	}
}
