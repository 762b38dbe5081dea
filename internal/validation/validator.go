package validation

import (
	"fmt"
	"reflect"
	"strings"

	validatorv10 "github.com/go-playground/validator/v10"
)

// New returns a configured validator with custom struct-level validation registered.
func New() *validatorv10.Validate {
	v := validatorv10.New()

	// report fields by their JSON names so errors match the request body
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	// an order history cannot contain more returns than orders
	v.RegisterStructValidation(analyzeOrderStructValidation, AnalyzeOrderRequest{})

	return v
}

// analyzeOrderStructValidation checks the history counts agree with each other.
func analyzeOrderStructValidation(sl validatorv10.StructLevel) {
	req := sl.Current().Interface().(AnalyzeOrderRequest)
	if req.PastOrders == nil {
		return
	}
	orders := *req.PastOrders

	if req.PastReturns > orders {
		sl.ReportError(req.PastReturns, "past_returns", "PastReturns", "lte_past_orders",
			fmt.Sprintf("past_returns %d > past_orders %d", req.PastReturns, orders))
	}
	if req.ReturnHistoryCount != nil && *req.ReturnHistoryCount > orders {
		sl.ReportError(*req.ReturnHistoryCount, "return_history_count", "ReturnHistoryCount", "lte_past_orders",
			fmt.Sprintf("return_history_count %d > past_orders %d", *req.ReturnHistoryCount, orders))
	}
}
