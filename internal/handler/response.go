package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/campuspass/checkin-server-go/internal/errors"
	"github.com/campuspass/checkin-server-go/internal/httputil"
)

var validate = validator.New()

func writeSuccess(w http.ResponseWriter, status int, data any) {
	httputil.WriteSuccess(w, status, data)
}

func writeError(w http.ResponseWriter, err error) {
	httputil.WriteError(w, err)
}

// decodeAndValidate decodes a JSON body into dst and runs struct validation,
// returning a 400-mapped AppError with per-field detail on failure.
func decodeAndValidate(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return apperrors.ValidationError("Invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		var fields []map[string]string
		var verrs validator.ValidationErrors
		if ok := errorsAs(err, &verrs); ok {
			for _, fe := range verrs {
				fields = append(fields, map[string]string{
					"field":  fe.Field(),
					"reason": fe.Tag(),
				})
			}
		}
		return apperrors.ValidationError("Request validation failed").WithDetails(fields)
	}
	return nil
}

func errorsAs(err error, target *validator.ValidationErrors) bool {
	v, ok := err.(validator.ValidationErrors)
	if ok {
		*target = v
	}
	return ok
}
