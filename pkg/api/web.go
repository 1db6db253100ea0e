package api

import (
	"html/template"
	"net/http"
	"strconv"
	"strings"

	"github.com/mimir-aip/winequality/pkg/models"
)

// formDefaults are the red wine dataset means, used to prefill the form
var formDefaults = []float64{8.32, 0.53, 0.27, 2.54, 0.087, 15.87, 46.47, 0.9967, 3.31, 0.66, 10.42}

type formField struct {
	Name  string
	Label string
	Value string
}

type formPage struct {
	Fields     []formField
	Prediction string
	Error      string
}

var formTemplate = template.Must(template.New("form").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>Wine quality</title>
<style>
body { font-family: sans-serif; max-width: 40em; margin: 2em auto; }
label { display: inline-block; width: 14em; }
.result { font-size: 1.4em; margin: 1em 0; }
.error { color: #b00020; }
</style>
</head>
<body>
<h1>Wine quality prediction</h1>
{{if .Prediction}}<p class="result">Prediction: <strong>{{.Prediction}}</strong></p>{{end}}
{{if .Error}}<p class="error">{{.Error}}</p>{{end}}
<form method="post" action="/">
{{range .Fields}}<p><label for="{{.Name}}">{{.Label}}</label><input id="{{.Name}}" name="{{.Name}}" type="number" step="any" min="0" value="{{.Value}}" required></p>
{{end}}<p><button type="submit">Predict</button></p>
</form>
</body>
</html>
`))

func newFormPage(values []string) formPage {
	page := formPage{Fields: make([]formField, len(models.BaseFeatures))}
	for i, name := range models.BaseFeatures {
		value := strconv.FormatFloat(formDefaults[i], 'g', -1, 64)
		if values != nil {
			value = values[i]
		}
		page.Fields[i] = formField{
			Name:  name,
			Label: strings.ReplaceAll(name, "_", " "),
			Value: value,
		}
	}
	return page
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.renderForm(w, http.StatusOK, newFormPage(nil))
}

func (s *Server) handleFormSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := newFormPage(nil)
		page.Error = "Invalid form submission"
		s.renderForm(w, http.StatusBadRequest, page)
		return
	}

	raw := make([]string, len(models.BaseFeatures))
	values := make([]float64, len(models.BaseFeatures))
	page := formPage{}
	for i, name := range models.BaseFeatures {
		raw[i] = strings.TrimSpace(r.PostForm.Get(name))
		v, err := strconv.ParseFloat(raw[i], 64)
		if err != nil && page.Error == "" {
			page.Error = name + " must be a number"
		}
		values[i] = v
	}
	page.Fields = newFormPage(raw).Fields
	if page.Error != "" {
		s.renderForm(w, http.StatusBadRequest, page)
		return
	}

	sample, err := models.NewWineSample(values)
	if err != nil {
		page.Error = err.Error()
		s.renderForm(w, http.StatusBadRequest, page)
		return
	}
	labels, err := s.predict(r, []*models.WineSample{sample})
	if err != nil {
		page.Error = err.Error()
		s.renderForm(w, statusFor(err), page)
		return
	}
	page.Prediction = labels[0]
	s.renderForm(w, http.StatusOK, page)
}

func (s *Server) renderForm(w http.ResponseWriter, status int, page formPage) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := formTemplate.Execute(w, page); err != nil {
		s.logger.Error("failed to render form", "error", err)
	}
}
