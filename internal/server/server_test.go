package server

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ginjaninja78/nfe-danfe-filter/internal/config"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/logger"
	"github.com/ginjaninja78/nfe-danfe-filter/internal/pipeline"
)

func newTestServer(t *testing.T, runner Runner) http.Handler {
	t.Helper()
	if runner == nil {
		cfg := config.Default()
		cfg.Output.WorkbookEnabled = false
		runner = pipeline.New(&cfg, logger.NewNop(), nil)
	}
	srv, err := New(Options{Logger: logger.NewNop(), Runner: runner})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	return srv.Routes()
}

func zipWith(t *testing.T, name, body string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create(name)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := w.Write([]byte(body)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func multipartRequest(t *testing.T, files map[string][]byte, fields map[string]string) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	for field, data := range files {
		fw, err := mw.CreateFormFile(field, field+".zip")
		if err != nil {
			t.Fatal(err)
		}
		if _, err := fw.Write(data); err != nil {
			t.Fatal(err)
		}
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/filtros", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestHealth(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("health = %d %q", rec.Code, rec.Body.String())
	}
}

func TestForm(t *testing.T) {
	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `name="xml_zip"`) {
		t.Errorf("form = %d", rec.Code)
	}
}

func TestFilter_ReturnsZip(t *testing.T) {
	xml := `<NFe><infNFe><ide><nNF>106</nNF></ide><det><prod><CFOP>5102</CFOP><xPed>7373</xPed></prod></det></infNFe></NFe>`
	req := multipartRequest(t,
		map[string][]byte{"xml_zip": zipWith(t, "nfe106.xml", xml)},
		map[string]string{"modo": "pedido", "pedido": "7373"},
	)

	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/zip" {
		t.Errorf("Content-Type = %q", ct)
	}
	if !strings.Contains(rec.Header().Get("Content-Disposition"), ResultFileName) {
		t.Errorf("Content-Disposition = %q", rec.Header().Get("Content-Disposition"))
	}

	zr, err := zip.NewReader(bytes.NewReader(rec.Body.Bytes()), int64(rec.Body.Len()))
	if err != nil {
		t.Fatalf("response is not a zip: %v", err)
	}
	names := map[string]bool{}
	for _, f := range zr.File {
		names[f.Name] = true
	}
	if !names["XMLs_filtrados/nfe106.xml"] || !names["relatorio.txt"] {
		t.Errorf("unexpected entries: %v", names)
	}
}

func TestFilter_InputErrorIs400(t *testing.T) {
	req := multipartRequest(t,
		map[string][]byte{"danfe_zip": zipWith(t, "DANFE_0099.pdf", "%PDF-1.4")},
		map[string]string{"modo": "pedido", "pedido": "7373"},
	)

	rec := httptest.NewRecorder()
	newTestServer(t, nil).ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", rec.Code)
	}
	var body ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if body.Message == "" || len(body.Errors) == 0 {
		t.Errorf("unexpected body: %+v", body)
	}
}

type failingRunner struct{}

func (failingRunner) Run(context.Context, pipeline.Input) (*pipeline.Result, error) {
	return nil, errors.New("disk full")
}

func TestFilter_InternalErrorIs500(t *testing.T) {
	req := multipartRequest(t,
		map[string][]byte{"xml_zip": zipWith(t, "a.xml", "<a/>")},
		map[string]string{"modo": "intervalo", "nf_inicio": "1", "nf_fim": "2"},
	)

	rec := httptest.NewRecorder()
	newTestServer(t, failingRunner{}).ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "disk full") {
		t.Error("internal error details must not leak")
	}
}

func TestNew_RequiresDependencies(t *testing.T) {
	if _, err := New(Options{Runner: failingRunner{}}); err == nil {
		t.Error("expected error without logger")
	}
	if _, err := New(Options{Logger: logger.NewNop()}); err == nil {
		t.Error("expected error without runner")
	}
}
