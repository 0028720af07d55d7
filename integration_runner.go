package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// Manual end-to-end smoke test against a running server on localhost:8080.

const baseURL = "http://localhost:8080"

type loginResponse struct {
	Token string `json:"token"`
	User  struct {
		ID        string `json:"id"`
		Email     string `json:"email"`
		Role      string `json:"role"`
		AccountID string `json:"account_id"`
	} `json:"user"`
}

type searchResponse struct {
	AuditLogs []struct {
		Action       string `json:"action"`
		ResourceType string `json:"resource_type"`
		CreatedAt    string `json:"created_at"`
	} `json:"audit_logs"`
	Pagination struct {
		Page    int  `json:"page"`
		PerPage int  `json:"per_page"`
		Total   int  `json:"total"`
		Pages   int  `json:"pages"`
		HasNext bool `json:"has_next"`
		HasPrev bool `json:"has_prev"`
	} `json:"pagination"`
}

func main() {
	fmt.Println("=== Audit Trail Backend Integration Test ===")

	// Unique domain so the script can be re-run against the same database.
	domain := fmt.Sprintf("smoke-%d.example.com", time.Now().Unix())
	ownerEmail := "owner@" + domain

	// 1. Create an account with its owner
	fmt.Println("\n1. Creating account...")
	status, _ := post("/api/accounts", "", map[string]any{
		"name":             "Smoke Test Store",
		"domain":           domain,
		"owner_email":      ownerEmail,
		"owner_password":   "smoke-pass-1",
		"owner_first_name": "Smoke",
		"owner_last_name":  "Owner",
	})
	if status != http.StatusCreated {
		log.Fatalf("create account: expected 201, got %d", status)
	}
	fmt.Println("✓ Account created")

	// 2. Duplicate domain must conflict
	fmt.Println("\n2. Re-creating the same domain...")
	status, _ = post("/api/accounts", "", map[string]any{
		"name":             "Smoke Test Store",
		"domain":           domain,
		"owner_email":      "other@" + domain,
		"owner_password":   "smoke-pass-1",
		"owner_first_name": "Smoke",
		"owner_last_name":  "Owner",
	})
	if status != http.StatusConflict {
		log.Fatalf("duplicate domain: expected 409, got %d", status)
	}
	fmt.Println("✓ Duplicate domain rejected with 409")

	// 3. Login as owner
	fmt.Println("\n3. Logging in as owner...")
	var login loginResponse
	status, body := post("/api/auth/login", "", map[string]any{
		"email":    ownerEmail,
		"password": "smoke-pass-1",
	})
	if status != http.StatusOK {
		log.Fatalf("login: expected 200, got %d", status)
	}
	if err := json.Unmarshal(body, &login); err != nil {
		log.Fatal("decode login response:", err)
	}
	fmt.Printf("✓ Logged in as %s (role %s)\n", login.User.Email, login.User.Role)

	// 4. Create an analyst and a duplicate
	fmt.Println("\n4. Creating users...")
	status, _ = post("/api/users", login.Token, map[string]any{
		"email":      "analyst@" + domain,
		"password":   "smoke-pass-1",
		"first_name": "Smoke",
		"last_name":  "Analyst",
		"role":       "analyst",
	})
	if status != http.StatusCreated {
		log.Fatalf("create analyst: expected 201, got %d", status)
	}
	status, _ = post("/api/users", login.Token, map[string]any{
		"email":      "analyst@" + domain,
		"password":   "smoke-pass-1",
		"first_name": "Smoke",
		"last_name":  "Analyst",
		"role":       "analyst",
	})
	if status != http.StatusConflict {
		log.Fatalf("duplicate email: expected 409, got %d", status)
	}
	fmt.Println("✓ Analyst created, duplicate rejected with 409")

	// 5. Search audit logs as owner
	fmt.Println("\n5. Searching audit logs...")
	var search searchResponse
	status, body = get("/api/audit-logs?per_page=10", login.Token)
	if status != http.StatusOK {
		log.Fatalf("search: expected 200, got %d", status)
	}
	if err := json.Unmarshal(body, &search); err != nil {
		log.Fatal("decode search response:", err)
	}
	fmt.Printf("✓ Found %d entries (page %d of %d):\n",
		search.Pagination.Total, search.Pagination.Page, search.Pagination.Pages)
	for _, entry := range search.AuditLogs {
		fmt.Printf("   %s  %s/%s\n", entry.CreatedAt, entry.Action, entry.ResourceType)
	}

	// 6. Analyst must be denied audit log access
	fmt.Println("\n6. Checking analyst is denied...")
	var analystLogin loginResponse
	status, body = post("/api/auth/login", "", map[string]any{
		"email":    "analyst@" + domain,
		"password": "smoke-pass-1",
	})
	if status != http.StatusOK {
		log.Fatalf("analyst login: expected 200, got %d", status)
	}
	if err := json.Unmarshal(body, &analystLogin); err != nil {
		log.Fatal("decode analyst login:", err)
	}
	status, _ = get("/api/audit-logs", analystLogin.Token)
	if status != http.StatusForbidden {
		log.Fatalf("analyst search: expected 403, got %d", status)
	}
	fmt.Println("✓ Analyst got 403 on audit logs")

	// 7. Logout, then reuse the dead token
	fmt.Println("\n7. Logging out...")
	status, _ = post("/api/auth/logout", login.Token, nil)
	if status != http.StatusOK {
		log.Fatalf("logout: expected 200, got %d", status)
	}
	status, _ = get("/api/audit-logs", login.Token)
	if status != http.StatusUnauthorized {
		log.Fatalf("dead token: expected 401, got %d", status)
	}
	fmt.Println("✓ Session invalidated on logout")

	fmt.Println("\n=== Test Complete ===")
	fmt.Println("\nSummary:")
	fmt.Println("✓ Account creation with conflict detection working")
	fmt.Println("✓ Session login/logout working")
	fmt.Println("✓ User management with role policy working")
	fmt.Println("✓ Audit log search with pagination working")
	fmt.Println("✓ Role-based denial working")
}

func post(path, token string, payload any) (int, []byte) {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			log.Fatal("encode payload:", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, baseURL+path, &body)
	if err != nil {
		log.Fatal("build request:", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(req, token)
}

func get(path, token string) (int, []byte) {
	req, err := http.NewRequest(http.MethodGet, baseURL+path, nil)
	if err != nil {
		log.Fatal("build request:", err)
	}
	return do(req, token)
}

func do(req *http.Request, token string) (int, []byte) {
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		log.Fatalf("%s %s: %v", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	var out bytes.Buffer
	_, _ = out.ReadFrom(resp.Body)
	return resp.StatusCode, out.Bytes()
}
