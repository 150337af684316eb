package gateway

// Schema is the GraphQL schema served at /graphql
const Schema = `
schema {
	query: Query
	mutation: Mutation
}

scalar Time

type Role {
	role: String!
	associatedIds: [String!]!
}

type Bookmark {
	_id: ID!
	categoryId: ID!
	name: String!
	type: String!
	path: String!
	archived: Boolean!
}

type Book {
	bookId: String!
	authors: [String!]!
	description: String!
	image: String!
	link: String!
	title: String!
}

type User {
	_id: ID!
	username: String!
	email: String!
	isVerified: Boolean!
	profilePic: String!
	roles: [Role!]!
	bookmarks: [Bookmark!]!
	savedBooks: [Book!]!
	createdAt: Time!
}

type Subject {
	_id: ID!
	name: String!
	description: String!
	image: String!
	bgColor: String!
	createdBy: String!
	path: String!
	createdAt: Time!
}

type BetaFeedback {
	_id: ID!
	username: String!
	email: String!
	category: String!
	message: String!
	image: String!
	archived: Boolean!
	createdAt: Time!
}

type Auth {
	token: ID!
	user: User!
}

type VerifyEmailPayload {
	user: User!
}

type Message {
	message: String!
}

type Upload {
	key: String!
	url: String!
}

input SortBy {
	field: String!
	order: String
}

type Query {
	me: User
	users: [User!]!
	user(userId: ID!): User
	bookmarks(userId: ID!): [Bookmark!]!
	subjects(sortBy: SortBy): [Subject!]!
	subject(subjectId: ID!): Subject
	betaFeedback(sortBy: SortBy): [BetaFeedback!]!
}

type Mutation {
	addUser(username: String!, email: String!, password: String!): Auth!
	login(email: String!, password: String!): Auth!
	forgotPassword(email: String!): Message!
	updatePassword(email: String!, oldPassword: String!, newPassword: String!): User!
	addEmailVerificationToken(userId: ID!): Message!
	verifyEmail(email: String!, token: String!): VerifyEmailPayload!

	addSubject(name: String!, description: String!, bgColor: String!, image: String): Subject!
	addBookmark(userId: ID!, categoryId: ID!, name: String!, type: String!, path: String!): User!
	archiveBookmark(userId: ID!, bookmarkId: ID!): User!
	unarchiveBookmark(userId: ID!, bookmarkId: ID!): User!
	addBook(userId: ID!, bookId: String!, authors: [String!]!, description: String!, image: String!, link: String!, title: String!): User!
	removeBook(userId: ID!, bookId: String!): User!
	updateProfilePic(userId: ID!, profilePic: String!): User!
	getS3Url: Upload!

	addBetaFeedback(username: String, email: String, category: String!, message: String!, image: String): BetaFeedback!
	archiveBetaFeedback(feedbackId: ID!): BetaFeedback!

	removeUser(userId: ID!): User!
	assignRole(userId: ID!, role: String!, associatedIds: [String!]): User!
	revokeRole(userId: ID!, role: String!): User!
}
`
