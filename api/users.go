package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

func (app *application) registerUserHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkUsername(input.Username)
	v.checkEmail(input.Email)
	v.checkPassword(input.Password)
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		app.logger.WithError(err).Error("password hashing failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}

	u := &user{
		Username:     input.Username,
		Email:        input.Email,
		PasswordHash: hash,
	}
	err = app.storage.insertUser(u)
	if err != nil {
		switch {
		case errors.Is(err, errDuplicateUsername):
			writeError(w, errDuplicateUsername, http.StatusUnprocessableEntity)
		default:
			app.logger.WithError(err).Error("user insert failed")
			writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		}
		return
	}

	// Best effort: a failed welcome mail never fails the registration.
	if app.mailer != nil && u.Email != "" {
		if err := app.mailer.sendWelcome(u); err != nil {
			app.logger.WithError(err).Warn("welcome mail not sent")
		}
	}

	writeJSON(w, u, http.StatusCreated)
}

func (app *application) createTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	v := newValidator()
	v.checkCond(input.Username != "", "username", "must be provided")
	v.checkCond(input.Password != "", "password", "must be provided")
	if v.hasErrors() {
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}

	u, err := app.storage.getUserByUsername(input.Username)
	if err != nil {
		app.logger.WithError(err).Error("user lookup failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}
	if u == nil {
		writeError(w, errors.New("invalid username or password"), http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(input.Password)); err != nil {
		writeError(w, errors.New("invalid username or password"), http.StatusUnauthorized)
		return
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": u.ID,
		"exp":     time.Now().Add(24 * time.Hour).Unix(),
	})
	signed, err := token.SignedString([]byte(app.config.jwtSecret))
	if err != nil {
		app.logger.WithError(err).Error("token signing failed")
		writeError(w, errors.New("internal server error"), http.StatusInternalServerError)
		return
	}

	writeJSON(w, map[string]string{"access": signed}, http.StatusOK)
}

func (app *application) verifyTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token string `json:"token"`
	}
	err := json.NewDecoder(r.Body).Decode(&input)
	if err != nil {
		writeError(w, err, http.StatusBadRequest)
		return
	}
	if input.Token == "" {
		v := newValidator()
		v.checkCond(false, "token", "must be provided")
		writeError(w, v.toError(), http.StatusBadRequest)
		return
	}
	if _, err := app.parseToken(input.Token); err != nil {
		writeError(w, errors.New("token is invalid or expired"), http.StatusUnauthorized)
		return
	}
	writeJSON(w, struct{}{}, http.StatusOK)
}
