package server

import (
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/smallbiznis/tenantly/internal/authorization"
	organizationdomain "github.com/smallbiznis/tenantly/internal/organization/domain"
	"github.com/smallbiznis/tenantly/internal/orgcontext"
	"github.com/smallbiznis/tenantly/internal/permission"
	"go.uber.org/zap"
)

// RequirePermission loads the caller's membership and authorizes every perm
// against it. A tenant resolved from the host must match the membership.
func (s *Server) RequirePermission(perms ...permission.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := sessionFromContext(c)
		if !ok {
			AbortWithError(c, ErrUnauthorized)
			return
		}

		membership, err := s.orgSvc.LoadMembership(c.Request.Context(), sess.IdentityID)
		if err != nil {
			if errors.Is(err, organizationdomain.ErrProfileNotFound) {
				AbortWithError(c, ErrForbidden)
				return
			}
			AbortWithError(c, err)
			return
		}

		if orgID, ok := orgcontext.OrgIDFromContext(c.Request.Context()); ok {
			if orgID != membership.Profile.OrganizationID {
				s.log.Debug("membership belongs to another organization",
					zap.String("identity_id", sess.IdentityID),
					zap.String("org_id", orgID),
				)
				AbortWithError(c, ErrForbidden)
				return
			}
		} else {
			annotateOrganization(c, membership.Organization.ID, membership.Organization.Name)
		}

		err = s.authzSvc.Authorize(c.Request.Context(), authorization.Actor{
			IdentityID:     sess.IdentityID,
			OrganizationID: membership.Profile.OrganizationID,
			Role:           permission.Role(membership.Profile.Role),
		}, perms...)
		if err != nil {
			AbortWithError(c, err)
			return
		}

		c.Set(contextMembershipKey, membership)
		c.Next()
	}
}

// actorFromContext returns the acting member set by RequirePermission.
func actorFromContext(c *gin.Context) (organizationdomain.Member, bool) {
	membership, ok := membershipFromContext(c)
	if !ok {
		return organizationdomain.Member{}, false
	}
	return organizationdomain.Member{
		ID:             membership.Profile.ID,
		OrganizationID: membership.Profile.OrganizationID,
		Role:           permission.Role(membership.Profile.Role),
	}, true
}
