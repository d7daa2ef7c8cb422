package handler

import (
	"errors"
	"io"
	"net/http"
	"reflect"

	"checknf/internal/apierror"
	"checknf/internal/canhoto"
	"checknf/internal/infra"
	"checknf/internal/service"
	"checknf/internal/sessao"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// decimal.Decimal validates as its float value (min=0 etc.)
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds the JSON body and runs the validator tags.
// On false the response has been written and the caller must return.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	return validar(c, req)
}

// bindQuery is bindAndValidate for query strings.
func bindQuery(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindQuery(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Parametros invalidos: "+err.Error()))
		return false
	}
	return validar(c, req)
}

func validar(c *gin.Context, req interface{}) bool {
	if err := validate.Struct(req); err != nil {
		var ve validator.ValidationErrors
		if !errors.As(err, &ve) {
			c.JSON(http.StatusBadRequest, apierror.New(err.Error()))
			return false
		}
		fields := make(map[string]string, len(ve))
		for _, fe := range ve {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// lerArquivo reads the multipart field "arquivo", refusing files over limite.
func lerArquivo(c *gin.Context, limite int64) (service.Upload, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limite+1<<20)
	fh, err := c.FormFile("arquivo")
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			c.JSON(http.StatusRequestEntityTooLarge, apierror.New(service.ErrArquivoGrande.Error()))
			return service.Upload{}, false
		}
		c.JSON(http.StatusBadRequest, apierror.New("Campo 'arquivo' obrigatorio"))
		return service.Upload{}, false
	}
	if fh.Size > limite {
		c.JSON(http.StatusRequestEntityTooLarge, apierror.New(service.ErrArquivoGrande.Error()))
		return service.Upload{}, false
	}
	f, err := fh.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Falha ao ler arquivo"))
		return service.Upload{}, false
	}
	defer f.Close()
	conteudo, err := io.ReadAll(f)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("Falha ao ler arquivo"))
		return service.Upload{}, false
	}
	return service.Upload{Nome: fh.Filename, Conteudo: conteudo, MaxBytes: limite}, true
}

// statusErros maps service sentinels to HTTP codes; first match wins.
var statusErros = []struct {
	err    error
	status int
}{
	{service.ErrCredenciaisInvalidas, http.StatusUnauthorized},
	{sessao.ErrTokenInvalido, http.StatusUnauthorized},
	{sessao.ErrTokenRevogado, http.StatusUnauthorized},
	{service.ErrSenhaIncorreta, http.StatusBadRequest},
	{service.ErrArquivoVazio, http.StatusBadRequest},

	{service.ErrUsuarioNaoEncontrado, http.StatusNotFound},
	{service.ErrNotaNaoEncontrada, http.StatusNotFound},
	{service.ErrSemCanhoto, http.StatusNotFound},
	{service.ErrClienteNaoEncontrado, http.StatusNotFound},
	{service.ErrFretistaNaoEncontrado, http.StatusNotFound},
	{service.ErrDocumentoNaoEncontrado, http.StatusNotFound},

	{service.ErrUsuarioDuplicado, http.StatusConflict},
	{service.ErrNotaDuplicada, http.StatusConflict},
	{service.ErrCNPJDuplicado, http.StatusConflict},
	{service.ErrPlacaDuplicada, http.StatusConflict},
	{service.ErrUltimoAdmin, http.StatusConflict},
	{service.ErrReprocessamento, http.StatusConflict},

	{service.ErrArquivoGrande, http.StatusRequestEntityTooLarge},
	{service.ErrArquivoInvalido, http.StatusUnsupportedMediaType},

	{canhoto.ErrStatusInvalido, http.StatusUnprocessableEntity},
	{service.ErrDataInvalida, http.StatusUnprocessableEntity},
	{service.ErrCNPJInvalido, http.StatusUnprocessableEntity},
	{service.ErrFretistaObrigatorio, http.StatusUnprocessableEntity},

	{infra.ErrBreakerOpen, http.StatusServiceUnavailable},
}

// responderErro writes the status of a known sentinel. Anything else is
// attached to the context for ErrorHandler to log, and answered with a 500.
func responderErro(c *gin.Context, err error) {
	for _, se := range statusErros {
		if errors.Is(err, se.err) {
			c.JSON(se.status, apierror.New(err.Error()))
			return
		}
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(http.StatusInternalServerError, apierror.New("Erro interno do servidor"))
}
