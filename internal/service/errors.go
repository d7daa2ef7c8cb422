package service

import "errors"

// Sentinel errors returned by the services; handlers map them to status codes.
var (
	ErrCredenciaisInvalidas = errors.New("credenciais invalidas")
	ErrSenhaIncorreta       = errors.New("senha atual incorreta")
	ErrUsuarioNaoEncontrado = errors.New("usuario nao encontrado")
	ErrUsuarioDuplicado     = errors.New("username ja cadastrado")
	ErrUltimoAdmin          = errors.New("nao e possivel remover o ultimo administrador ativo")
	ErrFretistaObrigatorio  = errors.New("usuarios carrier precisam de um fretista vinculado")

	ErrNotaNaoEncontrada = errors.New("nota nao encontrada")
	ErrNotaDuplicada     = errors.New("ja existe uma nota com este numero")
	ErrSemCanhoto        = errors.New("nota sem canhoto digitalizado")
	ErrDataInvalida      = errors.New("data invalida, use AAAA-MM-DD")

	ErrClienteNaoEncontrado  = errors.New("cliente nao encontrado")
	ErrCNPJInvalido          = errors.New("CNPJ deve ter 14 digitos")
	ErrCNPJDuplicado         = errors.New("CNPJ ja cadastrado")
	ErrFretistaNaoEncontrado = errors.New("fretista nao encontrado")
	ErrPlacaDuplicada        = errors.New("placa ja cadastrada")

	ErrDocumentoNaoEncontrado = errors.New("documento nao encontrado")
	ErrArquivoInvalido        = errors.New("tipo de arquivo nao suportado, envie PDF, JPEG ou PNG")
	ErrArquivoGrande          = errors.New("arquivo excede o tamanho maximo")
	ErrArquivoVazio           = errors.New("arquivo vazio")
	ErrReprocessamento        = errors.New("apenas documentos rejeitados ou com erro podem ser reprocessados")
)
