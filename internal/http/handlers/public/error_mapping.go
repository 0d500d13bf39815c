package public

import (
	"errors"

	"github.com/redvelvet-shop/internal/http/response"
	"github.com/redvelvet-shop/internal/service"

	"github.com/gin-gonic/gin"
)

// mappedHandlerError 定义业务错误到接口错误响应的映射关系。
type mappedHandlerError struct {
	target error
	code   int
	msg    string
}

var envelopeErrorRules = []mappedHandlerError{
	{target: service.ErrInvalidCartItem, code: response.CodeBadRequest, msg: "item inválido"},
	{target: service.ErrCartSessionRequired, code: response.CodeBadRequest, msg: "sessão de carrinho em falta"},
	{target: service.ErrCustomerRequired, code: response.CodeUnauthorized, msg: "não autenticado"},
	{target: service.ErrProfileInvalid, code: response.CodeBadRequest, msg: "perfil inválido"},
}

func respondWithMappedError(c *gin.Context, err error, rules []mappedHandlerError, fallbackCode int, fallbackMsg string) {
	for _, rule := range rules {
		if errors.Is(err, rule.target) {
			respondError(c, rule.code, rule.msg, nil)
			return
		}
	}
	respondError(c, fallbackCode, fallbackMsg, err)
}

func respondMappedError(c *gin.Context, err error) {
	respondWithMappedError(c, err, envelopeErrorRules, response.CodeInternal, "erro interno")
}
