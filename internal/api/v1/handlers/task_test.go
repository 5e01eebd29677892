package handlers_test

import (
	"fmt"
	"net/http"
	"testing"
)

func TestCreateTask(t *testing.T) {
	token, id := signupUser(t, "task user", uniqueEmail("taskcreate"), "12343566")

	resp := doJSON(t, "POST", "/tasks", map[string]string{"description": "buy milk"}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	task := body["data"].(map[string]interface{})
	if task["description"] != "buy milk" {
		t.Errorf("Expected description, got %v", task["description"])
	}
	if task["completed"] != false {
		t.Errorf("New task must default to completed=false")
	}
	if int(task["user_id"].(float64)) != id {
		t.Errorf("Expected owner %d, got %v", id, task["user_id"])
	}
}

func TestCreateTaskRequiresDescription(t *testing.T) {
	token, _ := signupUser(t, "task user", uniqueEmail("taskempty"), "12343566")

	resp := doJSON(t, "POST", "/tasks", map[string]string{"description": ""}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty description, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestTasksRequireAuth(t *testing.T) {
	resp := doJSON(t, "GET", "/tasks", nil, "")
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 without token, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

// A user must never see, update or delete another user's task; every
// cross-owner access reads as a plain 404.
func TestTaskOwnershipIsolation(t *testing.T) {
	tokenA, _ := signupUser(t, "owner", uniqueEmail("owner"), "12343566")
	tokenB, _ := signupUser(t, "intruder", uniqueEmail("intruder"), "12343566")

	taskID := createTask(t, tokenA, "private task")

	resp := doJSON(t, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, tokenB)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 reading another user's task, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "PATCH", fmt.Sprintf("/tasks/%d", taskID),
		map[string]bool{"completed": true}, tokenB)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 updating another user's task, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "DELETE", fmt.Sprintf("/tasks/%d", taskID), nil, tokenB)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 deleting another user's task, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// B's listing must not contain A's task.
	resp = doJSON(t, "GET", "/tasks", nil, tokenB)
	body := decodeBody(t, resp)
	tasks := body["data"].([]interface{})
	for _, raw := range tasks {
		task := raw.(map[string]interface{})
		if int(task["id"].(float64)) == taskID {
			t.Errorf("Another user's task leaked into the listing")
		}
	}

	// The owner still has full access.
	resp = doJSON(t, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, tokenA)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected 200 for the owner, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestUpdateTask(t *testing.T) {
	token, _ := signupUser(t, "updater", uniqueEmail("taskupdate"), "12343566")
	taskID := createTask(t, token, "walk the dog")

	resp := doJSON(t, "PATCH", fmt.Sprintf("/tasks/%d", taskID),
		map[string]interface{}{"completed": true, "description": "walk the cat"}, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	task := body["data"].(map[string]interface{})
	if task["completed"] != true {
		t.Errorf("Expected completed=true")
	}
	if task["description"] != "walk the cat" {
		t.Errorf("Expected updated description, got %v", task["description"])
	}
}

func TestUpdateTaskRejectsUnknownField(t *testing.T) {
	token, _ := signupUser(t, "updater", uniqueEmail("taskbadfield"), "12343566")
	taskID := createTask(t, token, "original description")

	resp := doJSON(t, "PATCH", fmt.Sprintf("/tasks/%d", taskID),
		map[string]interface{}{"priority": "high"}, token)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("Expected 400 for unknown field, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	var description string
	if err := testDB.QueryRow("SELECT description FROM tasks WHERE id = $1", taskID).Scan(&description); err != nil {
		t.Fatalf("Error reading task: %v", err)
	}
	if description != "original description" {
		t.Errorf("Rejected patch must leave the task unchanged, got %q", description)
	}
}

func TestDeleteTask(t *testing.T) {
	token, _ := signupUser(t, "deleter", uniqueEmail("taskdelete"), "12343566")
	taskID := createTask(t, token, "doomed task")

	resp := doJSON(t, "DELETE", fmt.Sprintf("/tasks/%d", taskID), nil, token)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = doJSON(t, "GET", fmt.Sprintf("/tasks/%d", taskID), nil, token)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 after delete, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestListTasksFilterAndPagination(t *testing.T) {
	token, _ := signupUser(t, "lister", uniqueEmail("tasklist"), "12343566")

	first := createTask(t, token, "task one")
	second := createTask(t, token, "task two")
	third := createTask(t, token, "task three")

	resp := doJSON(t, "PATCH", fmt.Sprintf("/tasks/%d", second),
		map[string]bool{"completed": true}, token)
	resp.Body.Close()

	// completed filter
	resp = doJSON(t, "GET", "/tasks?completed=true", nil, token)
	body := decodeBody(t, resp)
	tasks := body["data"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 completed task, got %d", len(tasks))
	}
	if int(tasks[0].(map[string]interface{})["id"].(float64)) != second {
		t.Errorf("Wrong task returned by completed filter")
	}

	resp = doJSON(t, "GET", "/tasks?completed=false", nil, token)
	body = decodeBody(t, resp)
	if got := len(body["data"].([]interface{})); got != 2 {
		t.Errorf("Expected 2 incomplete tasks, got %d", got)
	}

	// limit/skip over ascending id order
	resp = doJSON(t, "GET", "/tasks?limit=1&skip=1&sortBy=created_at:asc", nil, token)
	body = decodeBody(t, resp)
	tasks = body["data"].([]interface{})
	if len(tasks) != 1 {
		t.Fatalf("Expected 1 task with limit=1, got %d", len(tasks))
	}
	if int(tasks[0].(map[string]interface{})["id"].(float64)) != second {
		t.Errorf("Expected the second task with skip=1")
	}

	// descending sort puts the newest first
	resp = doJSON(t, "GET", "/tasks?sortBy=created_at:desc&limit=1", nil, token)
	body = decodeBody(t, resp)
	tasks = body["data"].([]interface{})
	if int(tasks[0].(map[string]interface{})["id"].(float64)) != third {
		t.Errorf("Expected the newest task first with created_at:desc")
	}
	_ = first
}

func TestListTasksRejectsBadParams(t *testing.T) {
	token, _ := signupUser(t, "lister", uniqueEmail("taskbadparams"), "12343566")

	for _, path := range []string{
		"/tasks?completed=maybe",
		"/tasks?limit=-1",
		"/tasks?skip=abc",
		"/tasks?sortBy=secret:asc",
		"/tasks?sortBy=created_at:sideways",
	} {
		resp := doJSON(t, "GET", path, nil, token)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("Expected 400 for %s, got %d", path, resp.StatusCode)
		}
		resp.Body.Close()
	}
}
