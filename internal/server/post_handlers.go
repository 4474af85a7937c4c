package server

import (
	"fmt"
	"strings"

	"myblog/internal/auth"
	"myblog/internal/forms"
	"myblog/internal/models"
	"myblog/internal/service"

	"github.com/gofiber/fiber/v2"
)

// postID reads the :id route parameter. Anything but a positive integer is not found.
func postID(c *fiber.Ctx) (uint, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.ErrNotFound
	}
	return uint(id), nil
}

func postForm(c *fiber.Ctx) forms.PostForm {
	return forms.PostForm{
		Title:   strings.TrimSpace(c.FormValue("title")),
		Content: c.FormValue("content"),
	}
}

// ListPosts shows one page of posts, optionally restricted to ?user=<id>.
func (s *Server) ListPosts(c *fiber.Ctx) error {
	in := service.ListPostsInput{Page: c.QueryInt("page", 1)}
	if userID := c.QueryInt("user", -1); userID != -1 {
		if userID < 0 {
			return models.NewNotFoundError("User", userID)
		}
		id := uint(userID)
		in.AuthorID = &id
	}

	listing, err := s.posts.List(c.UserContext(), in)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "posts", fiber.Map{
		"Title":   "Posts",
		"Listing": listing,
		"Author":  listing.Author,
	})
}

func (s *Server) CreatePostPage(c *fiber.Ctx) error {
	return s.render(c, fiber.StatusOK, "create", fiber.Map{
		"Title":  "New",
		"Action": "/posts/create",
		"Form":   forms.PostForm{},
	})
}

func (s *Server) CreatePost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	form := postForm(c)
	data := fiber.Map{"Title": "New", "Action": "/posts/create", "Form": form}

	if err := form.Validate(ctx); err != nil {
		return s.invalid(c, "create", data, err)
	}
	if _, err := s.posts.CreatePost(ctx, service.CreatePostInput{
		UserID:  currentUser(c).ID,
		Title:   form.Title,
		Content: form.Content,
	}); err != nil {
		return s.invalid(c, "create", data, err)
	}

	s.sessions.Flash(c, auth.FlashSuccess, "Your post was successfully created.")
	return c.Redirect("/posts", fiber.StatusFound)
}

func (s *Server) EditPostPage(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	post, err := s.posts.GetOwnedPost(c.UserContext(), currentUser(c).ID, id)
	if err != nil {
		return err
	}
	return s.render(c, fiber.StatusOK, "edit", fiber.Map{
		"Title":  "Edit",
		"Action": fmt.Sprintf("/posts/edit/%d", post.ID),
		"Post":   post,
		"Form":   forms.PostForm{Title: post.Title, Content: post.Content},
	})
}

// EditPost checks existence and ownership before looking at the form.
func (s *Server) EditPost(c *fiber.Ctx) error {
	ctx := c.UserContext()
	id, err := postID(c)
	if err != nil {
		return err
	}
	user := currentUser(c)
	post, err := s.posts.GetOwnedPost(ctx, user.ID, id)
	if err != nil {
		return err
	}

	form := postForm(c)
	data := fiber.Map{
		"Title":  "Edit",
		"Action": fmt.Sprintf("/posts/edit/%d", post.ID),
		"Post":   post,
		"Form":   form,
	}
	if err := form.Validate(ctx); err != nil {
		return s.invalid(c, "edit", data, err)
	}
	if _, err := s.posts.UpdatePost(ctx, service.UpdatePostInput{
		UserID:  user.ID,
		PostID:  post.ID,
		Title:   form.Title,
		Content: form.Content,
	}); err != nil {
		return s.invalid(c, "edit", data, err)
	}

	s.sessions.Flash(c, auth.FlashSuccess, "Your post has been updated!")
	return c.Redirect("/posts", fiber.StatusFound)
}

func (s *Server) DeletePost(c *fiber.Ctx) error {
	id, err := postID(c)
	if err != nil {
		return err
	}
	if err := s.posts.DeletePost(c.UserContext(), service.DeletePostInput{
		UserID: currentUser(c).ID,
		PostID: id,
	}); err != nil {
		return err
	}
	s.sessions.Flash(c, auth.FlashSuccess, "Your post has been deleted.")
	return c.Redirect("/posts", fiber.StatusFound)
}
