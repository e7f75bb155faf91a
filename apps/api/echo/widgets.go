package echoapi

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/vishusingh1/classroom/core"
	"github.com/vishusingh1/classroom/core/class"
	"github.com/vishusingh1/classroom/core/media"
	"github.com/vishusingh1/classroom/core/user"
	"github.com/vishusingh1/classroom/services/cloudinary"
)

const (
	contextMountKey = "widgetMount"
	// room for the multipart envelope around the file
	multipartOverhead = 1 << 20
)

type widgetAPI struct {
	reg       *widgetRegistry
	provider  *cloudinary.Bootstrap
	userSvc   *user.Service
	classSvc  *class.Service
	validate  *validator.Validate
	maxUpload int64
}

type widgetResponse struct {
	ID       string         `json:"id"`
	Kind     string         `json:"kind"`
	RecordID int            `json:"record_id"`
	Snapshot media.Snapshot `json:"snapshot"`
}

func newWidgetResponse(m *mount) widgetResponse {
	return widgetResponse{
		ID:       m.id.String(),
		Kind:     m.binding.kind,
		RecordID: m.binding.recordID,
		Snapshot: m.widget.Snapshot(),
	}
}

type widgetProps struct {
	Disabled *bool `json:"disabled" validate:"required"`
}

func registerWidgetAPI(g *echo.Group, jwt, wsJWT echo.MiddlewareFunc, api *widgetAPI) {
	ug := g.Group("/users/:id", jwt, ctxUserOrAdminMiddleware)
	ug.POST("/avatar-widget", api.mountAvatar)

	cg := g.Group("/classes/:id", jwt)
	cg.POST("/banner-widget", api.mountBanner)

	wg := g.Group("/widgets/:wid")
	wg.GET("/events", api.events, wsJWT, api.mountMiddleware)

	dg := wg.Group("", jwt, api.mountMiddleware)
	dg.GET("", api.get)
	dg.DELETE("", api.unmount)
	dg.PUT("/props", api.setProps)
	dg.POST("/open", api.open)
	dg.POST("/cancel", api.cancel)
	dg.POST("/upload", api.upload)
	dg.DELETE("/asset", api.remove)
}

// mountMiddleware loads the widget identified by the ":wid" path param.
// Only the user who mounted it, or an admin, may drive it.
func (api *widgetAPI) mountMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		claims, err := getContextClaims(ctx)
		if err != nil {
			return errors.Wrap(err, "getting context claims")
		}
		id, err := uuid.Parse(ctx.Param("wid"))
		if err != nil {
			return errWidgetNotFound
		}
		m, ok := api.reg.get(id)
		if !ok {
			return errWidgetNotFound
		}
		if !claims.IsAdmin && claims.UserID() != m.ownerID {
			return errHttpForbidden
		}
		ctx.Set(contextMountKey, m)
		return next(ctx)
	}
}

func contextMount(ctx echo.Context) *mount {
	return ctx.Get(contextMountKey).(*mount)
}

func (api *widgetAPI) avatarBinding(id int) binding {
	return binding{
		kind:     kindAvatar,
		recordID: id,
		load: func(ctx context.Context) (*media.AssetReference, error) {
			usr, err := api.userSvc.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return usr.Avatar, nil
		},
		store: func(ctx context.Context, ref *media.AssetReference) (*media.AssetReference, error) {
			usr, err := api.userSvc.SetAvatar(ctx, id, ref)
			if err != nil {
				return nil, err
			}
			return usr.Avatar, nil
		},
	}
}

func (api *widgetAPI) bannerBinding(id int) binding {
	return binding{
		kind:     kindBanner,
		recordID: id,
		load: func(ctx context.Context) (*media.AssetReference, error) {
			cls, err := api.classSvc.GetByID(ctx, id)
			if err != nil {
				return nil, err
			}
			return cls.Banner, nil
		},
		store: func(ctx context.Context, ref *media.AssetReference) (*media.AssetReference, error) {
			cls, err := api.classSvc.SetBanner(ctx, id, ref)
			if err != nil {
				return nil, err
			}
			return cls.Banner, nil
		},
	}
}

func (api *widgetAPI) mountAvatar(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	m, err := api.reg.mount(ctx.Request().Context(), claims.UserID(), api.avatarBinding(id))
	if err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "mounting avatar widget")
	}
	return ctx.JSON(http.StatusCreated, newWidgetResponse(m))
}

func (api *widgetAPI) mountBanner(ctx echo.Context) error {
	claims, err := getContextClaims(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context claims")
	}
	id, err := pathID(ctx)
	if err != nil {
		return err
	}

	cls, err := api.classSvc.GetByID(ctx.Request().Context(), id)
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "getting class")
	}
	if !claims.IsAdmin && !(claims.IsTeacher && cls.TeacherID == claims.UserID()) {
		return errHttpForbidden
	}

	m, err := api.reg.mount(ctx.Request().Context(), claims.UserID(), api.bannerBinding(id))
	if err != nil {
		if errors.Cause(err) == class.ErrNotFound {
			return errHttpNotFound
		}
		return errors.Wrap(err, "mounting banner widget")
	}
	return ctx.JSON(http.StatusCreated, newWidgetResponse(m))
}

func (api *widgetAPI) get(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, newWidgetResponse(contextMount(ctx)))
}

func (api *widgetAPI) setProps(ctx echo.Context) error {
	var data widgetProps
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding data")
	}
	if err := api.validate.Struct(data); err != nil {
		return err
	}

	m := contextMount(ctx)
	if err := m.setDisabled(ctx.Request().Context(), *data.Disabled); err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, newWidgetResponse(m))
}

func (api *widgetAPI) open(ctx echo.Context) error {
	contextMount(ctx).widget.Open()
	return ctx.NoContent(http.StatusNoContent)
}

// cancel closes the upload dialog without a file.
func (api *widgetAPI) cancel(ctx echo.Context) error {
	m := contextMount(ctx)
	if _, err := api.provider.Cancel(m.id.String()); err != nil {
		if errors.Cause(err) == cloudinary.ErrUnknownSession {
			return errProviderNotReady
		}
		return errors.Wrap(err, "cancelling upload")
	}
	return ctx.NoContent(http.StatusNoContent)
}

func (api *widgetAPI) upload(ctx echo.Context) error {
	m := contextMount(ctx)
	req := ctx.Request()
	req.Body = http.MaxBytesReader(ctx.Response(), req.Body, api.maxUpload+multipartOverhead)

	fh, err := ctx.FormFile("file")
	if err != nil {
		return core.NewValidationError(errors.Wrap(err, "reading upload"), core.FieldError{
			Field: "file",
			Error: fmt.Sprintf("an image of at most %d bytes is required", api.maxUpload),
		})
	}
	f, err := fh.Open()
	if err != nil {
		return errors.Wrap(err, "opening upload")
	}
	defer f.Close()

	if err := api.provider.Submit(req.Context(), m.id.String(), fh.Filename, f); err != nil {
		return uploadError(err)
	}
	return ctx.JSON(http.StatusOK, newWidgetResponse(m))
}

// uploadError maps a Submit failure; the widget has already been told through its result callback.
func uploadError(err error) error {
	switch cause := errors.Cause(err); cause {
	case cloudinary.ErrUnknownSession:
		return errProviderNotReady
	case cloudinary.ErrSessionNotOpen:
		return errSessionNotOpen
	case cloudinary.ErrSessionBusy:
		return errSessionBusy
	default:
		if _, ok := cause.(*core.ValidationError); ok {
			return err
		}
		return echo.NewHTTPError(errUploadFailed.Code, errUploadFailed.Message).SetInternal(err)
	}
}

func (api *widgetAPI) remove(ctx echo.Context) error {
	m := contextMount(ctx)
	m.widget.Remove(ctx.Request().Context())
	return ctx.JSON(http.StatusOK, newWidgetResponse(m))
}

func (api *widgetAPI) unmount(ctx echo.Context) error {
	if !api.reg.unmount(contextMount(ctx).id) {
		return errWidgetNotFound
	}
	return ctx.NoContent(http.StatusNoContent)
}
