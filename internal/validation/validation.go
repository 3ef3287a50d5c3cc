package validation

import (
	"reflect"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

var (
	clockPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

	// formulas is filled by the energy package so the enumeration lives
	// next to its labels.
	formulas   = map[string]bool{}
	formulasMu sync.RWMutex

	registerOnce sync.Once
)

// RegisterFormulas declares the accepted values of the energyformula rule.
func RegisterFormulas(names ...string) {
	formulasMu.Lock()
	defer formulasMu.Unlock()
	for _, n := range names {
		formulas[n] = true
	}
}

// Register installs the custom rules on gin's validator and makes field
// errors report json names. Safe to call more than once.
func Register() {
	registerOnce.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		Install(v)
	})
}

// Install adds the custom rules to v.
func Install(v *validator.Validate) {
	v.RegisterTagNameFunc(jsonName)
	_ = v.RegisterValidation("objectid", validateObjectID)
	_ = v.RegisterValidation("energyformula", validateFormula)
	_ = v.RegisterValidation("isodate", validateISODate)
	_ = v.RegisterValidation("clock", validateClock)
}

func jsonName(field reflect.StructField) string {
	name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
	switch name {
	case "-":
		return ""
	case "":
		return field.Name
	}
	return name
}

func validateObjectID(fl validator.FieldLevel) bool {
	_, err := primitive.ObjectIDFromHex(fl.Field().String())
	return err == nil
}

func validateFormula(fl validator.FieldLevel) bool {
	formulasMu.RLock()
	defer formulasMu.RUnlock()
	return formulas[fl.Field().String()]
}

func validateISODate(fl validator.FieldLevel) bool {
	return IsDate(fl.Field().String())
}

func validateClock(fl validator.FieldLevel) bool {
	return clockPattern.MatchString(fl.Field().String())
}

// IsDate reports whether s is a calendar date in YYYY-MM-DD form.
func IsDate(s string) bool {
	_, err := time.Parse(DateLayout, s)
	return err == nil
}
