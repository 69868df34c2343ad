package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"
)

func (app *application) getTasksHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	tasks, err := app.storage.getTasksForUser(u.ID)
	if err != nil {
		app.logger.WithError(err).Error("task list failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	writeJSON(w, tasks, http.StatusOK)
}

func (app *application) createTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	// The owner never comes from the payload; the decoded struct has no
	// owner field, so a caller-supplied one is dropped on the floor.
	var input struct {
		Title       string     `json:"title"`
		Description string     `json:"description"`
		Completed   bool       `json:"completed"`
		DueDate     *time.Time `json:"due_date"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkCond(input.Title != "", "title", "must be provided")
	v.checkCond(len(input.Title) <= 255, "title", "must be atmost 255 characters")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	t := &task{
		UserID:      u.ID,
		Title:       input.Title,
		Description: input.Description,
		Completed:   input.Completed,
		DueDate:     input.DueDate,
	}
	err = app.storage.insertTask(t)
	if err != nil {
		app.logger.WithError(err).Error("task insert failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	writeJSON(w, t, http.StatusCreated)
}

// resolveTask looks up the path id within the caller's owned subset. A task
// owned by someone else resolves exactly like a missing one.
func (app *application) resolveTask(w http.ResponseWriter, r *http.Request) *task {
	u := getUserFromRequest(r)
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, errors.New("invalid task id"), http.StatusBadRequest)
		return nil
	}
	t, err := app.storage.getTaskForUser(id, u.ID)
	if err != nil {
		app.logger.WithError(err).Error("task lookup failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return nil
	}
	if t == nil {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return nil
	}
	return t
}

func (app *application) getTaskHandler(w http.ResponseWriter, r *http.Request) {
	t := app.resolveTask(w, r)
	if t == nil {
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (app *application) updateTaskHandler(w http.ResponseWriter, r *http.Request) {
	t := app.resolveTask(w, r)
	if t == nil {
		return
	}
	// Partial update: absent fields stay untouched. Id, owner and
	// created_at are not decoded at all, so they can never be applied.
	var input struct {
		Title       *string    `json:"title"`
		Description *string    `json:"description"`
		Completed   *bool      `json:"completed"`
		DueDate     *time.Time `json:"due_date"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	if input.Title != nil {
		v.checkCond(*input.Title != "", "title", "must not be empty")
		v.checkCond(len(*input.Title) <= 255, "title", "must be atmost 255 characters")
	}
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	if input.Title != nil {
		t.Title = *input.Title
	}
	if input.Description != nil {
		t.Description = *input.Description
	}
	if input.Completed != nil {
		t.Completed = *input.Completed
	}
	if input.DueDate != nil {
		t.DueDate = input.DueDate
	}

	err = app.storage.updateTask(t)
	if err != nil {
		app.logger.WithError(err).Error("task update failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	writeJSON(w, t, http.StatusOK)
}

func (app *application) deleteTaskHandler(w http.ResponseWriter, r *http.Request) {
	u := getUserFromRequest(r)
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		writeError(w, errors.New("invalid task id"), http.StatusBadRequest)
		return
	}
	deleted, err := app.storage.deleteTaskForUser(id, u.ID)
	if err != nil {
		app.logger.WithError(err).Error("task delete failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	if !deleted {
		writeError(w, errors.New("task not found"), http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
