package documents_test

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/jpeg"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"intake-backend/internal/bootstrap"
	"intake-backend/internal/shared/config"
)

func testApp(t *testing.T) *bootstrap.App {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Config{
		Port:            "0",
		CORSAllowOrigin: []string{"http://localhost:5173"},
		LocalStoreDir:   t.TempDir(),
		Env:             "dev",
		ObjectStoreType: "local",
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		t.Fatalf("bootstrap build: %v", err)
	}
	return app
}

func addStaffHeader(req *http.Request) {
	req.Header.Set("X-User-Id", "staff-1")
	req.Header.Set("X-User-Role", "staff")
}

func smallJPEG(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 48, 32))
	for y := 0; y < 32; y++ {
		for x := 0; x < 48; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 5), G: uint8(y * 7), B: uint8(x + y), A: 255})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: 90}); err != nil {
		t.Fatalf("encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func uploadDocument(t *testing.T, router http.Handler, applicantID, typeCode, fileName string, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("typeCode", typeCode); err != nil {
		t.Fatalf("write typeCode field: %v", err)
	}
	fileWriter, err := writer.CreateFormFile("file", fileName)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	if _, err := fileWriter.Write(payload); err != nil {
		t.Fatalf("write file: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/applicants/"+applicantID+"/documents", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	addStaffHeader(req)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	return resp
}

func TestDocumentsUploadListAndReview(t *testing.T) {
	app := testApp(t)
	router := app.Router

	resp := uploadDocument(t, router, "applicant-1", "ktp", "ktp.jpg", smallJPEG(t))
	if resp.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", resp.Code, resp.Body.String())
	}

	var created struct {
		DocumentID   string `json:"documentId"`
		TypeCode     string `json:"typeCode"`
		OCRStatus    string `json:"ocrStatus"`
		ReviewStatus string `json:"reviewStatus"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.DocumentID == "" {
		t.Fatal("expected documentId, got empty")
	}
	if created.ReviewStatus != "PENDING" {
		t.Fatalf("expected review status PENDING, got %s", created.ReviewStatus)
	}

	// List the applicant's documents.
	reqList := httptest.NewRequest(http.MethodGet, "/api/v1/applicants/applicant-1/documents", nil)
	addStaffHeader(reqList)
	respList := httptest.NewRecorder()
	router.ServeHTTP(respList, reqList)
	if respList.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", respList.Code)
	}
	var listed []struct {
		DocumentID string `json:"documentId"`
		FileName   string `json:"fileName"`
	}
	if err := json.NewDecoder(respList.Body).Decode(&listed); err != nil {
		t.Fatalf("decode list response: %v", err)
	}
	if len(listed) != 1 || listed[0].FileName != "ktp.jpg" {
		t.Fatalf("unexpected listing: %#v", listed)
	}

	// Rejecting without notes is refused.
	reqNoNotes := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+created.DocumentID+"/review",
		strings.NewReader(`{"status":"REJECTED"}`))
	reqNoNotes.Header.Set("Content-Type", "application/json")
	addStaffHeader(reqNoNotes)
	respNoNotes := httptest.NewRecorder()
	router.ServeHTTP(respNoNotes, reqNoNotes)
	if respNoNotes.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", respNoNotes.Code, respNoNotes.Body.String())
	}

	// Approve records the reviewer from the identity header.
	reqApprove := httptest.NewRequest(http.MethodPatch, "/api/v1/documents/"+created.DocumentID+"/review",
		strings.NewReader(`{"status":"APPROVED"}`))
	reqApprove.Header.Set("Content-Type", "application/json")
	addStaffHeader(reqApprove)
	respApprove := httptest.NewRecorder()
	router.ServeHTTP(respApprove, reqApprove)
	if respApprove.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d: %s", respApprove.Code, respApprove.Body.String())
	}
	var reviewed struct {
		ReviewStatus string `json:"reviewStatus"`
		ReviewedBy   string `json:"reviewedBy"`
	}
	if err := json.NewDecoder(respApprove.Body).Decode(&reviewed); err != nil {
		t.Fatalf("decode review response: %v", err)
	}
	if reviewed.ReviewStatus != "APPROVED" {
		t.Fatalf("expected review status APPROVED, got %s", reviewed.ReviewStatus)
	}
	if reviewed.ReviewedBy != "staff-1" {
		t.Fatalf("expected reviewer staff-1, got %s", reviewed.ReviewedBy)
	}
}

func TestDocumentsUploadRejectsWrongExtension(t *testing.T) {
	app := testApp(t)

	resp := uploadDocument(t, app.Router, "applicant-1", "ktp", "ktp.pdf", []byte("%PDF-1.4"))
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected status 400, got %d: %s", resp.Code, resp.Body.String())
	}
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode error response: %v", err)
	}
	if body.Error.Code != "validation_error" {
		t.Fatalf("expected validation_error, got %s", body.Error.Code)
	}
}

func TestDocumentTypesListing(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/document-types", nil)
	addStaffHeader(req)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", resp.Code)
	}
	var types []struct {
		Code     string `json:"code"`
		Required bool   `json:"required"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&types); err != nil {
		t.Fatalf("decode types response: %v", err)
	}
	if len(types) != 12 {
		t.Fatalf("expected 12 document types, got %d", len(types))
	}
}

func TestDocumentsRequireIdentity(t *testing.T) {
	app := testApp(t)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/document-types", nil)
	resp := httptest.NewRecorder()
	app.Router.ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected status 401, got %d", resp.Code)
	}
}
