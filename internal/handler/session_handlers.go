package handler

import (
	"net/http"

	sharedMiddleware "storyteller-server/shared/middleware"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

func (h *StoryHandler) listStoryTypes(c echo.Context) error {
	storyTypes, err := h.service.ListStoryTypes(c.Request().Context())
	if err != nil {
		h.logger.Error("Error listing story types", zap.Error(err))
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, storyTypes)
}

func (h *StoryHandler) startSession(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req startSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	session, err := h.service.StartSession(c.Request().Context(), parentUID, req.ChildID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error starting session", zap.String("parentUID", parentUID), zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	return c.JSON(http.StatusCreated, session)
}

func (h *StoryHandler) getSession(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	session, err := h.service.GetSession(c.Request().Context(), parentUID, c.Param("id"))
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error getting session", zap.String("sessionID", c.Param("id")), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, session)
}

func (h *StoryHandler) listMessages(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	messages, err := h.service.ListMessages(c.Request().Context(), parentUID, c.Param("id"))
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error listing messages", zap.String("sessionID", c.Param("id")), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, messages)
}

func (h *StoryHandler) selectStoryType(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req selectStoryTypeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if req.StoryTypeID == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "storyTypeId is required"})
	}

	result, err := h.service.SelectStoryType(c.Request().Context(), parentUID, c.Param("id"), req.StoryTypeID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error selecting story type",
				zap.String("sessionID", c.Param("id")),
				zap.String("storyTypeID", req.StoryTypeID),
				zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StoryHandler) sendMessage(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}

	result, err := h.service.SendChildMessage(c.Request().Context(), parentUID, c.Param("id"), req.Text)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error processing child message", zap.String("sessionID", c.Param("id")), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StoryHandler) chooseOption(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req chooseOptionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if req.OptionID == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "optionId is required"})
	}

	result, err := h.service.ChooseOption(c.Request().Context(), parentUID, c.Param("id"), req.OptionID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error processing option choice",
				zap.String("sessionID", c.Param("id")),
				zap.String("optionID", req.OptionID),
				zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StoryHandler) moreOptions(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	result, err := h.service.MoreOptions(c.Request().Context(), parentUID, c.Param("id"))
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error regenerating options", zap.String("sessionID", c.Param("id")), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StoryHandler) continueAfterIntroduction(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	result, err := h.service.ContinueAfterIntroduction(c.Request().Context(), parentUID, c.Param("id"))
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error continuing after introduction", zap.String("sessionID", c.Param("id")), zap.Error(err))
		}
		return handleServiceError(c, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *StoryHandler) chooseEnding(c echo.Context) error {
	parentUID, err := sharedMiddleware.ParentUIDFromContext(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, APIError{Message: err.Error()})
	}

	var req chooseEndingRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, APIError{Message: "Invalid request body: " + err.Error()})
	}
	if req.EndingID == "" {
		return c.JSON(http.StatusBadRequest, APIError{Message: "endingId is required"})
	}

	result, err := h.service.ChooseEnding(c.Request().Context(), parentUID, c.Param("id"), req.EndingID)
	if err != nil {
		if !isExpectedError(err) {
			h.logger.Error("Error choosing ending",
				zap.String("sessionID", c.Param("id")),
				zap.String("endingID", req.EndingID),
				zap.Error(err))
		}
		return handleServiceError(c, err)
	}

	// Наблюдение за final_story для автокомпиляции
	h.watcher.Supervise(c.Param("id"))

	return c.JSON(http.StatusOK, result)
}
